package portal

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"estate-portal/internal/domain"
)

type DashboardData struct {
	Stats        domain.DashboardStats    `json:"stats"`
	Monthly      []domain.MonthlyActivity `json:"monthlyActivity"`
	Distribution []domain.CategoryShare   `json:"propertyDistribution"`
	Recent       []domain.Property        `json:"recentProperties"`
	Changes      domain.Changes           `json:"changes"`
}

// Dashboard is the signed-in user's overview.
type Dashboard struct {
	be   Backend
	sess Sessions
}

func NewDashboard(be Backend, sess Sessions) *Dashboard { return &Dashboard{be: be, sess: sess} }

// Load issues the five dashboard requests in parallel; any failure fails the load.
func (d *Dashboard) Load(ctx context.Context) (DashboardData, error) {
	id, err := currentIdentity(d.sess)
	if err != nil {
		return DashboardData{}, err
	}
	var out DashboardData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Stats, err = d.be.DashboardStats(gctx, id.Email)
		return err
	})
	g.Go(func() (err error) {
		out.Monthly, err = d.be.MonthlyActivity(gctx, id.Email)
		return err
	})
	g.Go(func() (err error) {
		out.Distribution, err = d.be.PropertyDistribution(gctx, id.Email)
		return err
	})
	g.Go(func() (err error) {
		out.Recent, err = d.be.RecentProperties(gctx, id.Email)
		return err
	})
	g.Go(func() (err error) {
		out.Changes, err = d.be.Changes(gctx, id.Email)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardData{}, fmt.Errorf("load dashboard: %w", err)
	}
	return out, nil
}
