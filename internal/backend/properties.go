package backend

import (
	"context"
	"net/http"
	"net/url"

	"estate-portal/internal/domain"
)

// FetchProperties lists public properties. q carries search, sortBy and order.
func (c *Client) FetchProperties(ctx context.Context, q url.Values) ([]domain.Property, error) {
	var out []domain.Property
	err := c.do(ctx, call{endpoint: "GET /property", method: http.MethodGet, path: "/property", query: q, out: &out})
	return nonNil(out), err
}

func (c *Client) Property(ctx context.Context, id string) (domain.Property, error) {
	var out domain.Property
	err := c.do(ctx, call{endpoint: "GET /property/:id", method: http.MethodGet, path: idPath("/property", id), out: &out})
	return out, err
}

// CreateProperty posts a listing on behalf of email. The backend answers with either the
// stored document or an insert acknowledgement; both are accepted.
func (c *Client) CreateProperty(ctx context.Context, email string, p domain.NewProperty) (domain.Property, error) {
	var out struct {
		domain.Property
		InsertedID string `json:"insertedId"`
	}
	err := c.do(ctx, call{
		endpoint: "POST /property", method: http.MethodPost, path: "/property",
		query: emailQuery(email), body: p, auth: true, out: &out,
	})
	if err != nil {
		return domain.Property{}, err
	}
	created := out.Property
	if created.ID == "" {
		created.ID = out.InsertedID
	}
	if created.Name == "" {
		created.Name, created.Description, created.Category = p.Name, p.Description, p.Category
		created.Price, created.Location, created.ImageLink, created.User = p.Price, p.Location, p.ImageLink, p.User
	}
	return created, nil
}

func (c *Client) MyProperties(ctx context.Context, email string) ([]domain.Property, error) {
	var out []domain.Property
	err := c.do(ctx, call{
		endpoint: "GET /my-properties", method: http.MethodGet, path: "/my-properties",
		query: emailQuery(email), auth: true, out: &out,
	})
	return nonNil(out), err
}

func (c *Client) UpdateMyProperty(ctx context.Context, email, id string, patch domain.PropertyPatch) error {
	return c.do(ctx, call{
		endpoint: "PATCH /my-properties/:id", method: http.MethodPatch, path: idPath("/my-properties", id),
		query: emailQuery(email), body: patch, auth: true,
	})
}

func (c *Client) DeleteMyProperty(ctx context.Context, email, id string) error {
	return c.do(ctx, call{
		endpoint: "DELETE /my-properties/:id", method: http.MethodDelete, path: idPath("/my-properties", id),
		query: emailQuery(email), auth: true,
	})
}

// NotMyProperties lists the properties email may review.
func (c *Client) NotMyProperties(ctx context.Context, email string) ([]domain.Property, error) {
	var out []domain.Property
	err := c.do(ctx, call{
		endpoint: "GET /not-my-properties", method: http.MethodGet, path: "/not-my-properties",
		query: emailQuery(email), auth: true, out: &out,
	})
	return nonNil(out), err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
