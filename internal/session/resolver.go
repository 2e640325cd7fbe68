package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"estate-portal/internal/domain"
)

// Resolver fetches the authorization role whenever a new identity appears in the store.
//
// Every identity transition bumps a generation counter; a role response is published only if
// its generation is still current and the store's identity epoch has not moved, so a slow
// fetch for a previous identity can never overwrite the session of a newer one. Fetch
// failures degrade to domain.RoleUser.
type Resolver struct {
	store *Store
	dir   Directory
	log   *zap.Logger

	mu      sync.Mutex
	gen     uint64
	current string // uid the latest generation belongs to
	wg      sync.WaitGroup
	ctx     context.Context
}

func NewResolver(store *Store, dir Directory, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: store, dir: dir, log: log}
}

// Start subscribes to the store and resolves the current identity if there is one.
// ctx bounds the role fetches; stop unsubscribes.
func (r *Resolver) Start(ctx context.Context) (stop func()) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	unsubscribe := r.store.Subscribe(r.observe)
	r.observe(r.store.Snapshot())
	return unsubscribe
}

// Wait blocks until in-flight role fetches have finished.
func (r *Resolver) Wait() { r.wg.Wait() }

func (r *Resolver) observe(s domain.Session) {
	uid := s.UID()
	epoch := r.store.identityEpoch()

	r.mu.Lock()
	if uid == r.current {
		r.mu.Unlock()
		return
	}
	r.current = uid
	r.gen++
	gen := r.gen
	ctx := r.ctx
	r.mu.Unlock()

	if s.Identity == nil {
		// role was cleared together with the identity; the generation bump drops in-flight fetches
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id := *s.Identity
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.resolve(ctx, gen, epoch, id)
	}()
}

func (r *Resolver) resolve(ctx context.Context, gen, epoch uint64, id domain.Identity) {
	role, err := r.fetch(ctx, id.Email)
	if err != nil {
		r.log.Warn("role fetch failed, using default role",
			zap.String("uid", id.UID), zap.String("role", string(role)), zap.Error(err))
	}

	r.mu.Lock()
	stale := gen != r.gen
	r.mu.Unlock()
	if stale {
		r.log.Debug("discarding stale role response", zap.String("uid", id.UID))
		return
	}
	if !r.store.setRole(id.UID, epoch, role) {
		r.log.Debug("identity replaced during role fetch", zap.String("uid", id.UID))
		return
	}
	r.log.Info("role resolved", zap.String("uid", id.UID), zap.String("role", string(role)))
}

// fetch never returns an empty role: any failure yields domain.RoleUser.
func (r *Resolver) fetch(ctx context.Context, email string) (role domain.Role, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			role, err = domain.RoleUser, fmt.Errorf("role fetch panicked: %v", rec)
		}
	}()
	rec, err := r.dir.LookupUser(ctx, email)
	if err != nil {
		return domain.RoleUser, err
	}
	return domain.ParseRole(rec.Role), nil
}
