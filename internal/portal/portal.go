// Package portal implements the signed-in views on top of the backend client. Every list
// it holds is changed only after the backend confirmed the mutation.
package portal

import (
	"context"
	"fmt"
	"net/url"

	"estate-portal/internal/domain"
)

// Backend is the part of the REST client the views use.
type Backend interface {
	LookupUser(ctx context.Context, email string) (domain.UserRecord, error)

	FetchProperties(ctx context.Context, q url.Values) ([]domain.Property, error)
	Property(ctx context.Context, id string) (domain.Property, error)
	CreateProperty(ctx context.Context, email string, p domain.NewProperty) (domain.Property, error)
	MyProperties(ctx context.Context, email string) ([]domain.Property, error)
	UpdateMyProperty(ctx context.Context, email, id string, patch domain.PropertyPatch) error
	DeleteMyProperty(ctx context.Context, email, id string) error
	NotMyProperties(ctx context.Context, email string) ([]domain.Property, error)

	PropertyReviews(ctx context.Context, propertyID string) ([]domain.Review, error)
	MyReviews(ctx context.Context, email string) ([]domain.Review, error)
	CreateReview(ctx context.Context, r domain.NewReview) error

	DashboardStats(ctx context.Context, email string) (domain.DashboardStats, error)
	MonthlyActivity(ctx context.Context, email string) ([]domain.MonthlyActivity, error)
	PropertyDistribution(ctx context.Context, email string) ([]domain.CategoryShare, error)
	RecentProperties(ctx context.Context, email string) ([]domain.Property, error)
	Changes(ctx context.Context, email string) (domain.Changes, error)

	AdminStats(ctx context.Context) (domain.AdminStats, error)
	AdminUsers(ctx context.Context) ([]domain.UserRecord, error)
	AdminProperties(ctx context.Context) ([]domain.Property, error)
	AdminReviews(ctx context.Context) ([]domain.Review, error)
	AdminDeleteProperty(ctx context.Context, id string) error
	AdminDeleteReview(ctx context.Context, id string) error
}

// Sessions exposes the current session read-only.
type Sessions interface {
	Snapshot() domain.Session
}

// Invalidator drops cached listing responses after a property changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

var errSignInRequired = fmt.Errorf("%w: sign in required", domain.ErrAuthorization)

func currentIdentity(s Sessions) (domain.Identity, error) {
	snap := s.Snapshot()
	if snap.Identity == nil {
		return domain.Identity{}, errSignInRequired
	}
	return *snap.Identity, nil
}

func invalidate(ctx context.Context, inv Invalidator) {
	if inv != nil {
		_ = inv.Invalidate(ctx)
	}
}

func removeByID[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	for i, it := range items {
		if idOf(it) == id {
			return append(items[:i:i], items[i+1:]...), true
		}
	}
	return items, false
}

func propertyKey(p domain.Property) string { return p.ID }
func reviewKey(r domain.Review) string { return r.ID }
