package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-portal/internal/domain"
)

type harness struct {
	store    *Store
	provider *fakeProvider
	dir      *fakeDirectory
	gateway  *Gateway
	resolver *Resolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: NewStore(), provider: newFakeProvider(), dir: newFakeDirectory()}
	h.gateway = NewGateway(h.store, h.provider, h.dir, nil)
	h.resolver = NewResolver(h.store, h.dir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopResolver := h.resolver.Start(ctx)
	stopGateway := h.gateway.Start()
	t.Cleanup(func() {
		stopGateway()
		stopResolver()
		cancel()
		h.resolver.Wait()
	})
	return h
}

func (h *harness) settled(t *testing.T) domain.Session {
	t.Helper()
	require.Eventually(t, func() bool { return !h.store.Snapshot().Loading }, time.Second, 5*time.Millisecond)
	return h.store.Snapshot()
}

func TestStore_InitialStateAndSubscribe(t *testing.T) {
	s := NewStore()
	assert.Equal(t, domain.Session{Loading: true}, s.Snapshot())

	var got []domain.Session
	unsubscribe := s.Subscribe(func(st domain.Session) { got = append(got, st) })

	alice := &domain.Identity{UID: "u1", Email: "a@b.com"}
	require.True(t, s.setIdentity(alice))
	require.False(t, s.setRole("someone-else", s.identityEpoch(), domain.RoleAdmin))
	require.True(t, s.setRole("u1", s.identityEpoch(), domain.RoleAdmin))

	renamed := *alice
	renamed.DisplayName = "Alice"
	require.True(t, s.setIdentity(&renamed))
	require.False(t, s.setIdentity(&renamed))

	unsubscribe()
	unsubscribe()
	require.True(t, s.setIdentity(nil))

	require.Len(t, got, 3)
	assert.Equal(t, domain.Session{Identity: alice, Loading: true}, got[0])
	assert.Equal(t, domain.Session{Identity: alice, Role: domain.RoleAdmin}, got[1])
	assert.Equal(t, domain.RoleAdmin, got[2].Role, "profile change keeps the role")
	assert.Equal(t, "Alice", got[2].Identity.DisplayName)
	assert.Equal(t, domain.Session{}, s.Snapshot())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.setIdentity(&domain.Identity{UID: "u1", Email: "a@b.com"})
	snap := s.Snapshot()
	snap.Identity.Email = "mutated@b.com"
	assert.Equal(t, "a@b.com", s.Snapshot().Identity.Email)
}

func TestStore_ReentrantMutationIsQueued(t *testing.T) {
	s := NewStore()
	var order []string
	s.Subscribe(func(st domain.Session) {
		if st.Identity != nil && st.Loading {
			order = append(order, "identity")
			s.setRole(st.Identity.UID, s.identityEpoch(), domain.RoleUser)
			order = append(order, "identity-done")
			return
		}
		order = append(order, "role:"+string(st.Role))
	})
	s.setIdentity(&domain.Identity{UID: "u1"})
	assert.Equal(t, []string{"identity", "identity-done", "role:user"}, order)
}

func TestStore_RoleForReplacedIdentityIsRejected(t *testing.T) {
	s := NewStore()
	alice := &domain.Identity{UID: "u1", Email: "a@b.com"}
	s.setIdentity(alice)
	epoch := s.identityEpoch()

	// same uid signs out and back in while the first role fetch is in flight
	s.setIdentity(nil)
	s.setIdentity(alice)
	require.False(t, s.setRole("u1", epoch, domain.RoleAdmin))
	assert.True(t, s.Snapshot().Loading)
	assert.Equal(t, domain.RoleNone, s.Snapshot().Role)

	require.True(t, s.setRole("u1", s.identityEpoch(), domain.RoleUser))
	assert.Equal(t, domain.Session{Identity: alice, Role: domain.RoleUser}, s.Snapshot())

	renamed := *alice
	renamed.DisplayName = "Alice"
	before := s.identityEpoch()
	s.setIdentity(&renamed)
	assert.Equal(t, before, s.identityEpoch(), "profile change keeps the epoch")
}

func TestResolver_SameUserReloginIgnoresEarlierFetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.dir.roles["a@b.com"] = "admin"
	_, err := h.gateway.SignUp(ctx, "a@b.com", "Aa1234", "", "")
	require.NoError(t, err)
	h.settled(t)
	require.NoError(t, h.gateway.Logout(ctx))

	first := h.dir.gate("a@b.com")
	_, err = h.gateway.Login(ctx, "a@b.com", "Aa1234")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.dir.lookupCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.gateway.Logout(ctx))
	second := h.dir.gate("a@b.com")
	_, err = h.gateway.Login(ctx, "a@b.com", "Aa1234")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.dir.lookupCount() == 3 }, time.Second, 5*time.Millisecond)

	close(first)
	require.Never(t, func() bool { return !h.store.Snapshot().Loading }, 50*time.Millisecond, 5*time.Millisecond,
		"the earlier sign-in's role must not settle the new one")

	close(second)
	st := h.settled(t)
	assert.Equal(t, domain.RoleAdmin, st.Role)
}

func TestGateway_StartSettlesSignedOut(t *testing.T) {
	h := newHarness(t)
	st := h.store.Snapshot()
	assert.False(t, st.Loading)
	assert.Nil(t, st.Identity)
	assert.Equal(t, 0, h.dir.lookupCount())
}

func TestGateway_SignUpScenario(t *testing.T) {
	h := newHarness(t)

	res, err := h.gateway.SignUp(context.Background(), "a@b.com", "Aa1234", "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", res.Identity.Email)
	assert.Equal(t, "Alice", res.Identity.DisplayName)
	assert.False(t, res.ExistingUser)
	assert.NoError(t, res.EnsureErr)

	st := h.settled(t)
	require.NotNil(t, st.Identity)
	assert.Equal(t, "a@b.com", st.Identity.Email)
	assert.Equal(t, domain.RoleUser, st.Role)

	require.Len(t, h.dir.ensured, 1)
	assert.Equal(t, "Alice", h.dir.ensured[0].Name)
}

func TestGateway_SignUpValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.gateway.SignUp(ctx, " ", "Aa1234", "Alice", "")
	assert.ErrorIs(t, err, domain.ErrCredential)
	_, err = h.gateway.SignUp(ctx, "a@b.com", "12345", "Alice", "")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	_, err = h.gateway.SignUp(ctx, "a@b.com", "Aa1234", "Alice", "")
	require.NoError(t, err)
	_, err = h.gateway.SignUp(ctx, "a@b.com", "Aa1234", "Alice", "")
	assert.ErrorIs(t, err, domain.ErrCredential)
}

func TestGateway_LoginErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.gateway.Login(ctx, "", "x")
	assert.ErrorIs(t, err, domain.ErrCredential)
	_, err = h.gateway.Login(ctx, "nobody@b.com", "Aa1234")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, h.store.Snapshot().Identity)
}

func TestGateway_FederatedEnsuresUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.gateway.SignInWithFederatedProvider(ctx)
	require.ErrorIs(t, err, domain.ErrPopupClosed)

	h.dir.users["g@b.com"] = true
	h.provider.federated = func() (domain.Identity, error) {
		return domain.Identity{UID: "g1", Email: "g@b.com", DisplayName: "Gina", ProviderID: "google.com"}, nil
	}
	res, err := h.gateway.SignInWithFederatedProvider(ctx)
	require.NoError(t, err)
	assert.True(t, res.ExistingUser)
	assert.Equal(t, domain.RoleUser, h.settled(t).Role)
}

func TestGateway_LogoutClearsRoleWithoutNetwork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.dir.roles["a@b.com"] = "admin"

	for i := 0; i < 3; i++ {
		if i == 0 {
			_, err := h.gateway.SignUp(ctx, "a@b.com", "Aa1234", "Alice", "")
			require.NoError(t, err)
		} else {
			_, err := h.gateway.Login(ctx, "a@b.com", "Aa1234")
			require.NoError(t, err)
		}
		assert.Equal(t, domain.RoleAdmin, h.settled(t).Role)

		before := h.dir.lookupCount()
		require.NoError(t, h.gateway.Logout(ctx))
		st := h.store.Snapshot()
		assert.Nil(t, st.Identity)
		assert.Equal(t, domain.RoleNone, st.Role)
		assert.False(t, st.Loading)
		assert.Equal(t, before, h.dir.lookupCount())
	}
}

func TestGateway_LogoutClearsEvenWhenProviderFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.gateway.SignUp(ctx, "a@b.com", "Aa1234", "", "")
	require.NoError(t, err)
	h.settled(t)

	h.provider.signOutErr = errors.New("provider unreachable")
	err = h.gateway.Logout(ctx)
	require.Error(t, err)
	assert.Nil(t, h.store.Snapshot().Identity)
	assert.Equal(t, domain.RoleNone, h.store.Snapshot().Role)
}

func TestResolver_FailureDefaultsToUser(t *testing.T) {
	h := newHarness(t)
	h.dir.failAll = true
	h.dir.roles["a@b.com"] = "admin"

	_, err := h.gateway.SignUp(context.Background(), "a@b.com", "Aa1234", "Alice", "")
	require.NoError(t, err)
	st := h.settled(t)
	assert.Equal(t, domain.RoleUser, st.Role)
	assert.NotNil(t, st.Identity)
}

func TestResolver_DiscardsStaleResponse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.dir.roles["x@b.com"] = "admin"
	h.dir.roles["y@b.com"] = "user"
	_, err := h.gateway.SignUp(ctx, "y@b.com", "Aa1234", "", "")
	require.NoError(t, err)
	h.settled(t)
	require.NoError(t, h.gateway.Logout(ctx))

	// X's role fetch stays in flight across logout and a login as Y
	gateX := h.dir.gate("x@b.com")
	_, err = h.gateway.SignUp(ctx, "x@b.com", "Aa1234", "", "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.dir.lookupCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.store.Snapshot().Loading)

	require.NoError(t, h.gateway.Logout(ctx))
	_, err = h.gateway.Login(ctx, "y@b.com", "Aa1234")
	require.NoError(t, err)
	st := h.settled(t)
	assert.Equal(t, "y@b.com", st.Identity.Email)
	assert.Equal(t, domain.RoleUser, st.Role)

	close(gateX)
	h.resolver.Wait()
	st = h.store.Snapshot()
	assert.Equal(t, "y@b.com", st.Identity.Email)
	assert.Equal(t, domain.RoleUser, st.Role, "stale admin role for X must be discarded")
}

func TestResolver_LoadingNeverFlipsBeforeRole(t *testing.T) {
	h := newHarness(t)
	h.dir.roles["a@b.com"] = "admin"

	var mu sync.Mutex
	var bad []domain.Session
	h.store.Subscribe(func(st domain.Session) {
		if st.Identity != nil && !st.Loading && st.Role == domain.RoleNone {
			mu.Lock()
			bad = append(bad, st)
			mu.Unlock()
		}
	})

	_, err := h.gateway.SignUp(context.Background(), "a@b.com", "Aa1234", "Alice", "http://img/a.png")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, h.settled(t).Role)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, bad)
}
