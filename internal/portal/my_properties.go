package portal

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"estate-portal/internal/domain"
)

// MyProperties is the owner's list of listings.
type MyProperties struct {
	be   Backend
	sess Sessions
	inv  Invalidator
	log  *zap.Logger

	mu    sync.Mutex
	email string
	items []domain.Property
}

func NewMyProperties(be Backend, sess Sessions, inv Invalidator, log *zap.Logger) *MyProperties {
	if log == nil {
		log = zap.NewNop()
	}
	return &MyProperties{be: be, sess: sess, inv: inv, log: log}
}

// Load replaces the local list with the backend's.
func (m *MyProperties) Load(ctx context.Context) ([]domain.Property, error) {
	id, err := currentIdentity(m.sess)
	if err != nil {
		return nil, err
	}
	items, err := m.be.MyProperties(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("load my properties: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email, m.items = id.Email, items
	return append([]domain.Property(nil), items...), nil
}

// Items returns the local list, or nil when it belongs to another user.
func (m *MyProperties) Items() []domain.Property {
	snap := m.sess.Snapshot()
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Identity == nil || snap.Identity.Email != m.email {
		return nil
	}
	return append([]domain.Property(nil), m.items...)
}

// Update sends patch and, once the backend accepted it, applies it to the local entry. The
// backend answers PATCH with an update count only, so a listing missing from the local list
// is read back from the backend instead.
func (m *MyProperties) Update(ctx context.Context, propertyID string, patch domain.PropertyPatch) (domain.Property, error) {
	id, err := currentIdentity(m.sess)
	if err != nil {
		return domain.Property{}, err
	}
	if err := ValidatePatch(patch); err != nil {
		return domain.Property{}, err
	}
	if err := m.be.UpdateMyProperty(ctx, id.Email, propertyID, patch); err != nil {
		m.log.Info("property update rejected", zap.String("property_id", propertyID), zap.Error(err))
		return domain.Property{}, fmt.Errorf("update property: %w", err)
	}
	invalidate(ctx, m.inv)

	m.mu.Lock()
	if m.email == id.Email {
		for i, p := range m.items {
			if p.ID == propertyID {
				m.items[i] = patch.Apply(p)
				out := m.items[i]
				m.mu.Unlock()
				return out, nil
			}
		}
	}
	m.mu.Unlock()

	p, err := m.be.Property(ctx, propertyID)
	if err != nil {
		m.log.Warn("updated property could not be read back", zap.String("property_id", propertyID), zap.Error(err))
		return domain.Property{}, fmt.Errorf("read updated property: %w", err)
	}
	return p, nil
}

// Delete removes the listing at the backend and then locally.
func (m *MyProperties) Delete(ctx context.Context, propertyID string) error {
	id, err := currentIdentity(m.sess)
	if err != nil {
		return err
	}
	if err := m.be.DeleteMyProperty(ctx, id.Email, propertyID); err != nil {
		m.log.Info("property delete rejected", zap.String("property_id", propertyID), zap.Error(err))
		return fmt.Errorf("delete property: %w", err)
	}
	invalidate(ctx, m.inv)

	m.mu.Lock()
	m.items, _ = removeByID(m.items, propertyID, propertyKey)
	m.mu.Unlock()
	return nil
}
