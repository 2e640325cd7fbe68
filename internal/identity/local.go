package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"estate-portal/internal/core/auth"
	"estate-portal/internal/domain"
	"estate-portal/pkg/utils"
)

const (
	minPasswordLen = 6

	// failed sign-ins allowed per email before ErrTooManyAttempts; refills one per interval
	localFailureBurst    = 5
	localFailureInterval = 12 * time.Second
)

type localAccount struct {
	ident domain.Identity
	hash  string
}

// Local is an in-process identity provider for development and tests. Accounts live in
// memory, passwords are bcrypt-hashed, and tokens are HS256 JWTs signed by JWTer.
type Local struct {
	jwter    *auth.JWTer
	prompter Prompter
	log      *zap.Logger

	mu       sync.Mutex
	accounts map[string]*localAccount // by lower-cased email
	failures map[string]*rate.Limiter
	current  *localAccount

	obs observers
}

type LocalOptions struct {
	JWTer    *auth.JWTer
	Prompter Prompter
	Logger   *zap.Logger
}

func NewLocal(o LocalOptions) *Local {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Local{
		jwter:    o.JWTer,
		prompter: o.Prompter,
		log:      o.Logger,
		accounts: map[string]*localAccount{},
		failures: map[string]*rate.Limiter{},
	}
}

func (l *Local) CreateAccount(ctx context.Context, email, password string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return domain.Identity{}, fmt.Errorf("%w: malformed email", domain.ErrCredential)
	}
	if len(password) < minPasswordLen {
		return domain.Identity{}, fmt.Errorf("%w: at least %d characters", domain.ErrWeakPassword, minPasswordLen)
	}
	if len(password) > utils.MaxPasswordBytes {
		return domain.Identity{}, fmt.Errorf("%w: at most %d bytes", domain.ErrWeakPassword, utils.MaxPasswordBytes)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	key := strings.ToLower(addr.Address)
	l.mu.Lock()
	if _, exists := l.accounts[key]; exists {
		l.mu.Unlock()
		return domain.Identity{}, fmt.Errorf("%w: email already in use", domain.ErrCredential)
	}
	acc := &localAccount{
		ident: domain.Identity{
			UID:        utils.NewID(),
			Email:      addr.Address,
			ProviderID: "local",
			CreatedAt:  time.Now().UTC(),
		},
		hash: hash,
	}
	l.accounts[key] = acc
	l.current = acc
	id := acc.ident
	l.mu.Unlock()

	l.log.Info("local account created", zap.String("uid", id.UID))
	l.obs.notify(&id)
	return id, nil
}

func (l *Local) Authenticate(ctx context.Context, email, password string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}
	key := strings.ToLower(strings.TrimSpace(email))

	l.mu.Lock()
	if lim, ok := l.failures[key]; ok && lim.Tokens() < 1 {
		l.mu.Unlock()
		return domain.Identity{}, domain.ErrTooManyAttempts
	}
	acc, exists := l.accounts[key]
	var hash string
	if exists {
		hash = acc.hash
	}
	l.mu.Unlock()

	if !exists || !utils.CheckPassword(password, hash) {
		l.recordFailure(key)
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	l.mu.Lock()
	delete(l.failures, key)
	l.current = acc
	id := acc.ident
	l.mu.Unlock()

	l.obs.notify(&id)
	return id, nil
}

// recordFailure spends one attempt for key. Limiters that have refilled completely carry no
// state and are dropped whenever a new one is added.
func (l *Local) recordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.failures[key]
	if !ok {
		for k, other := range l.failures {
			if other.Tokens() >= localFailureBurst {
				delete(l.failures, k)
			}
		}
		lim = rate.NewLimiter(rate.Every(localFailureInterval), localFailureBurst)
		l.failures[key] = lim
	}
	lim.Allow()
}

func (l *Local) AuthenticateFederated(ctx context.Context) (domain.Identity, error) {
	if l.prompter == nil {
		return domain.Identity{}, fmt.Errorf("%w: no federated prompt configured", domain.ErrPopupClosed)
	}
	cred, err := l.prompter.Prompt(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	email := strings.TrimSpace(cred.Email)
	if email == "" {
		return domain.Identity{}, domain.ErrPopupClosed
	}

	key := strings.ToLower(email)
	l.mu.Lock()
	acc, exists := l.accounts[key]
	if !exists {
		acc = &localAccount{ident: domain.Identity{
			UID:        utils.NewID(),
			Email:      email,
			ProviderID: "google.com",
			CreatedAt:  time.Now().UTC(),
		}}
		l.accounts[key] = acc
	}
	if cred.DisplayName != "" {
		acc.ident.DisplayName = cred.DisplayName
	}
	if cred.PhotoURL != "" {
		acc.ident.PhotoURL = cred.PhotoURL
	}
	l.current = acc
	id := acc.ident
	l.mu.Unlock()

	l.obs.notify(&id)
	return id, nil
}

func (l *Local) UpdateProfile(ctx context.Context, displayName, photoURL string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}
	l.mu.Lock()
	if l.current == nil {
		l.mu.Unlock()
		return domain.Identity{}, ErrSignedOut
	}
	l.current.ident.DisplayName = displayName
	l.current.ident.PhotoURL = photoURL
	id := l.current.ident
	l.mu.Unlock()

	l.obs.notify(&id)
	return id, nil
}

func (l *Local) SignOut(context.Context) error {
	l.mu.Lock()
	l.current = nil
	l.mu.Unlock()
	l.obs.notify(nil)
	return nil
}

func (l *Local) ObserveState(fn StateFunc) func() {
	unsubscribe := l.obs.add(fn)
	l.mu.Lock()
	var cur *domain.Identity
	if l.current != nil {
		id := l.current.ident
		cur = &id
	}
	l.mu.Unlock()
	fn(cur)
	return unsubscribe
}

func (l *Local) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	if l.current == nil {
		l.mu.Unlock()
		return "", ErrSignedOut
	}
	id := l.current.ident
	l.mu.Unlock()
	return l.jwter.Issue(id)
}
