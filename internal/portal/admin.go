package portal

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"estate-portal/internal/domain"
)

type AdminData struct {
	Stats      domain.AdminStats   `json:"stats"`
	Users      []domain.UserRecord `json:"users"`
	Properties []domain.Property   `json:"properties"`
	Reviews    []domain.Review     `json:"reviews"`
}

// Admin is the admin panel. Its calls are refused locally unless the session role is admin;
// the backend enforces the same rule.
type Admin struct {
	be   Backend
	sess Sessions
	inv  Invalidator
	log  *zap.Logger

	mu   sync.Mutex
	data AdminData
}

func NewAdmin(be Backend, sess Sessions, inv Invalidator, log *zap.Logger) *Admin {
	if log == nil {
		log = zap.NewNop()
	}
	return &Admin{be: be, sess: sess, inv: inv, log: log}
}

func (a *Admin) requireAdmin() error {
	s := a.sess.Snapshot()
	if s.Identity == nil {
		return errSignInRequired
	}
	if s.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: admin role required", domain.ErrAuthorization)
	}
	return nil
}

func (a *Admin) Load(ctx context.Context) (AdminData, error) {
	if err := a.requireAdmin(); err != nil {
		return AdminData{}, err
	}
	var out AdminData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Stats, err = a.be.AdminStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Users, err = a.be.AdminUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Properties, err = a.be.AdminProperties(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Reviews, err = a.be.AdminReviews(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminData{}, fmt.Errorf("load admin panel: %w", err)
	}
	a.mu.Lock()
	a.data = out
	a.mu.Unlock()
	return out, nil
}

// Data returns the last loaded panel.
func (a *Admin) Data() AdminData {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.data
	d.Users = append([]domain.UserRecord(nil), d.Users...)
	d.Properties = append([]domain.Property(nil), d.Properties...)
	d.Reviews = append([]domain.Review(nil), d.Reviews...)
	return d
}

func (a *Admin) DeleteProperty(ctx context.Context, id string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if err := a.be.AdminDeleteProperty(ctx, id); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	invalidate(ctx, a.inv)
	a.log.Info("admin deleted property", zap.String("property_id", id))

	a.mu.Lock()
	defer a.mu.Unlock()
	var removed bool
	if a.data.Properties, removed = removeByID(a.data.Properties, id, propertyKey); removed {
		a.data.Stats.TotalProperties--
	}
	return nil
}

func (a *Admin) DeleteReview(ctx context.Context, id string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if err := a.be.AdminDeleteReview(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	a.log.Info("admin deleted review", zap.String("review_id", id))

	a.mu.Lock()
	defer a.mu.Unlock()
	var removed bool
	if a.data.Reviews, removed = removeByID(a.data.Reviews, id, reviewKey); removed {
		a.data.Stats.TotalReviews--
	}
	return nil
}
