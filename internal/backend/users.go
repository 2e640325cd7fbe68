package backend

import (
	"context"
	"net/http"

	"estate-portal/internal/domain"
)

// EnsureUser creates the user record unless one exists for u.Email.
func (c *Client) EnsureUser(ctx context.Context, u domain.UserRecord) (domain.EnsureUserResult, error) {
	if u.Properties == nil {
		u.Properties = []string{}
	}
	var out domain.EnsureUserResult
	err := c.do(ctx, call{
		endpoint: "POST /users", method: http.MethodPost, path: "/users",
		body: u, auth: true, out: &out,
	})
	return out, err
}

// LookupUser returns the user record for email, including its role.
func (c *Client) LookupUser(ctx context.Context, email string) (domain.UserRecord, error) {
	var out domain.UserRecord
	err := c.do(ctx, call{
		endpoint: "GET /users", method: http.MethodGet, path: "/users",
		query: emailQuery(email), auth: true, out: &out,
	})
	return out, err
}
