package backend

import (
	"context"
	"net/http"

	"estate-portal/internal/domain"
)

func (c *Client) dashboard(ctx context.Context, name, email string, out any) error {
	return c.do(ctx, call{
		endpoint: "GET /dashboard/" + name, method: http.MethodGet, path: "/dashboard/" + name,
		query: emailQuery(email), auth: true, out: out,
	})
}

func (c *Client) DashboardStats(ctx context.Context, email string) (domain.DashboardStats, error) {
	var out domain.DashboardStats
	err := c.dashboard(ctx, "stats", email, &out)
	return out, err
}

func (c *Client) MonthlyActivity(ctx context.Context, email string) ([]domain.MonthlyActivity, error) {
	var out []domain.MonthlyActivity
	err := c.dashboard(ctx, "monthly-activity", email, &out)
	return nonNil(out), err
}

func (c *Client) PropertyDistribution(ctx context.Context, email string) ([]domain.CategoryShare, error) {
	var out []domain.CategoryShare
	err := c.dashboard(ctx, "property-distribution", email, &out)
	return nonNil(out), err
}

func (c *Client) RecentProperties(ctx context.Context, email string) ([]domain.Property, error) {
	var out []domain.Property
	err := c.dashboard(ctx, "recent-properties", email, &out)
	return nonNil(out), err
}

func (c *Client) Changes(ctx context.Context, email string) (domain.Changes, error) {
	var out domain.Changes
	err := c.dashboard(ctx, "changes", email, &out)
	return out, err
}
