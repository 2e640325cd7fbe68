// Package session owns the process-wide authentication state.
//
// The Store is written only by the Gateway (identity) and the Resolver (role); both live in
// this package and use the unexported mutators. Everything else reads snapshots or subscribes.
package session

import (
	"sync"

	"estate-portal/internal/domain"
)

// Listener receives a snapshot after every mutation.
type Listener func(domain.Session)

type subscriber struct {
	id uint64
	fn Listener
}

// Store holds the single Session of the process.
type Store struct {
	mu          sync.Mutex
	state       domain.Session
	subs        []subscriber
	nextID      uint64
	queue       []domain.Session
	dispatching bool
	// epoch advances whenever the identity is replaced or cleared
	epoch uint64
}

// NewStore returns a store in the initial "unknown" state: no identity, no role, loading.
func NewStore() *Store {
	return &Store{state: domain.Session{Loading: true}}
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers l for every subsequent mutation. Listeners run outside the store lock,
// one mutation at a time, in the order the mutations were applied. The returned function
// removes the listener and is safe to call more than once.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: l})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// identityEpoch returns the epoch of the current identity, to be handed back to setRole.
func (s *Store) identityEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// apply mutates the state and publishes the result. A listener that triggers another
// mutation gets it queued behind the current notification rather than interleaved.
func (s *Store) apply(mutate func(*domain.Session) bool) bool {
	s.mu.Lock()
	if !mutate(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, s.state.Clone())
	if s.dispatching {
		s.mu.Unlock()
		return true
	}
	s.dispatching = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		subs := append([]subscriber(nil), s.subs...)
		s.mu.Unlock()
		for _, sub := range subs {
			sub.fn(next.Clone())
		}
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
	return true
}

// setIdentity records the provider-reported identity.
//
//   - nil clears identity and role together and settles loading.
//   - a different identity than the current one clears the role and sets loading until the
//     resolver publishes the role.
//   - the same identity (profile change) only refreshes the profile fields.
func (s *Store) setIdentity(id *domain.Identity) bool {
	return s.apply(func(st *domain.Session) bool {
		if id == nil {
			if st.Identity == nil && st.Role == domain.RoleNone && !st.Loading {
				return false
			}
			st.Identity = nil
			st.Role = domain.RoleNone
			st.Loading = false
			s.epoch++
			return true
		}
		cp := *id
		if st.Identity != nil && st.Identity.UID == id.UID {
			if *st.Identity == cp {
				return false
			}
			st.Identity = &cp
			return true
		}
		st.Identity = &cp
		st.Role = domain.RoleNone
		st.Loading = true
		s.epoch++
		return true
	})
}

// setRole publishes the resolved role for uid and settles loading. It is a no-op when uid is
// no longer the current identity, or when the identity was replaced since epoch was read,
// even by a new sign-in of the same uid.
func (s *Store) setRole(uid string, epoch uint64, role domain.Role) bool {
	return s.apply(func(st *domain.Session) bool {
		if st.Identity == nil || st.Identity.UID != uid || s.epoch != epoch {
			return false
		}
		st.Role = role
		st.Loading = false
		return true
	})
}
