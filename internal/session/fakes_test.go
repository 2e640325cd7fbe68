package session

import (
	"context"
	"errors"
	"sync"

	"estate-portal/internal/domain"
	"estate-portal/internal/identity"
)

type fakeProvider struct {
	mu         sync.Mutex
	current    *domain.Identity
	accounts   map[string]domain.Identity
	signOutErr error
	federated  func() (domain.Identity, error)
	observers  []identity.StateFunc
}

var _ identity.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]domain.Identity{}}
}

func (p *fakeProvider) set(id *domain.Identity) {
	p.mu.Lock()
	p.current = id
	obs := append([]identity.StateFunc(nil), p.observers...)
	p.mu.Unlock()
	for _, fn := range obs {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}

func (p *fakeProvider) CreateAccount(_ context.Context, email, password string) (domain.Identity, error) {
	p.mu.Lock()
	if _, ok := p.accounts[email]; ok {
		p.mu.Unlock()
		return domain.Identity{}, domain.ErrCredential
	}
	id := domain.Identity{UID: "uid-" + email, Email: email, ProviderID: "password"}
	p.accounts[email] = id
	p.mu.Unlock()
	p.set(&id)
	return id, nil
}

func (p *fakeProvider) Authenticate(_ context.Context, email, password string) (domain.Identity, error) {
	p.mu.Lock()
	id, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok || password != "Aa1234" {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	p.set(&id)
	return id, nil
}

func (p *fakeProvider) AuthenticateFederated(context.Context) (domain.Identity, error) {
	if p.federated == nil {
		return domain.Identity{}, domain.ErrPopupClosed
	}
	id, err := p.federated()
	if err != nil {
		return domain.Identity{}, err
	}
	p.set(&id)
	return id, nil
}

func (p *fakeProvider) UpdateProfile(_ context.Context, displayName, photoURL string) (domain.Identity, error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return domain.Identity{}, identity.ErrSignedOut
	}
	id := *p.current
	id.DisplayName, id.PhotoURL = displayName, photoURL
	p.accounts[id.Email] = id
	p.mu.Unlock()
	p.set(&id)
	return id, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.set(nil)
	return nil
}

func (p *fakeProvider) ObserveState(fn identity.StateFunc) func() {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	cur := p.current
	p.mu.Unlock()
	fn(cur)
	return func() {}
}

func (p *fakeProvider) Token(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return "", identity.ErrSignedOut
	}
	return "token-" + p.current.UID, nil
}

// fakeDirectory answers role lookups; a gate channel per email lets tests hold a lookup in flight.
type fakeDirectory struct {
	mu      sync.Mutex
	roles   map[string]string
	users   map[string]bool
	gates   map[string]chan struct{}
	failAll bool
	lookups int
	ensured []domain.UserRecord
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{roles: map[string]string{}, users: map[string]bool{}, gates: map[string]chan struct{}{}}
}

func (d *fakeDirectory) gate(email string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{})
	d.gates[email] = ch
	return ch
}

func (d *fakeDirectory) lookupCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups
}

func (d *fakeDirectory) EnsureUser(_ context.Context, u domain.UserRecord) (domain.EnsureUserResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensured = append(d.ensured, u)
	if d.users[u.Email] {
		return domain.EnsureUserResult{ExistingUser: true}, nil
	}
	d.users[u.Email] = true
	return domain.EnsureUserResult{InsertedID: "rec-" + u.Email}, nil
}

func (d *fakeDirectory) LookupUser(ctx context.Context, email string) (domain.UserRecord, error) {
	d.mu.Lock()
	d.lookups++
	gate := d.gates[email]
	delete(d.gates, email)
	fail := d.failAll
	role := d.roles[email]
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.UserRecord{}, ctx.Err()
		}
	}
	if fail {
		return domain.UserRecord{}, errors.Join(domain.ErrNetwork, errors.New("connection refused"))
	}
	return domain.UserRecord{Email: email, Role: role}, nil
}
