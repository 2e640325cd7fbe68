package backend

import (
	"context"
	"net/http"

	"estate-portal/internal/domain"
)

// Admin endpoints; the backend rejects them unless the token belongs to an admin.

func (c *Client) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	var out domain.AdminStats
	err := c.do(ctx, call{endpoint: "GET /admin/dashboard/stats", method: http.MethodGet, path: "/admin/dashboard/stats", auth: true, out: &out})
	return out, err
}

func (c *Client) AdminUsers(ctx context.Context) ([]domain.UserRecord, error) {
	var out []domain.UserRecord
	err := c.do(ctx, call{endpoint: "GET /admin/users", method: http.MethodGet, path: "/admin/users", auth: true, out: &out})
	return nonNil(out), err
}

func (c *Client) AdminProperties(ctx context.Context) ([]domain.Property, error) {
	var out []domain.Property
	err := c.do(ctx, call{endpoint: "GET /admin/properties", method: http.MethodGet, path: "/admin/properties", auth: true, out: &out})
	return nonNil(out), err
}

func (c *Client) AdminReviews(ctx context.Context) ([]domain.Review, error) {
	var out []domain.Review
	err := c.do(ctx, call{endpoint: "GET /admin/reviews", method: http.MethodGet, path: "/admin/reviews", auth: true, out: &out})
	return nonNil(out), err
}

func (c *Client) AdminDeleteProperty(ctx context.Context, id string) error {
	return c.do(ctx, call{endpoint: "DELETE /admin/properties/:id", method: http.MethodDelete, path: idPath("/admin/properties", id), auth: true})
}

func (c *Client) AdminDeleteReview(ctx context.Context, id string) error {
	return c.do(ctx, call{endpoint: "DELETE /admin/reviews/:id", method: http.MethodDelete, path: idPath("/admin/reviews", id), auth: true})
}
