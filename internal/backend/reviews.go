package backend

import (
	"context"
	"net/http"

	"estate-portal/internal/domain"
)

func (c *Client) PropertyReviews(ctx context.Context, propertyID string) ([]domain.Review, error) {
	var out []domain.Review
	err := c.do(ctx, call{endpoint: "GET /reviews/:id", method: http.MethodGet, path: idPath("/reviews", propertyID), out: &out})
	return nonNil(out), err
}

// MyReviews lists the reviews written by email.
func (c *Client) MyReviews(ctx context.Context, email string) ([]domain.Review, error) {
	var out []domain.Review
	err := c.do(ctx, call{
		endpoint: "GET /reviews", method: http.MethodGet, path: "/reviews",
		query: emailQuery(email), auth: true, out: &out,
	})
	return nonNil(out), err
}

func (c *Client) CreateReview(ctx context.Context, r domain.NewReview) error {
	return c.do(ctx, call{endpoint: "POST /reviews", method: http.MethodPost, path: "/reviews", body: r, auth: true})
}
