package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"estate-portal/internal/domain"
	"estate-portal/internal/identity"
)

const minPasswordLen = 6

// Directory is the slice of the backend the session layer needs.
type Directory interface {
	// EnsureUser creates the backend user record if it does not exist yet.
	EnsureUser(ctx context.Context, u domain.UserRecord) (domain.EnsureUserResult, error)
	// LookupUser returns the backend user record (carrying the role) for email.
	LookupUser(ctx context.Context, email string) (domain.UserRecord, error)
}

// SignUpResult is returned by the operations that register a backend user record.
type SignUpResult struct {
	Identity domain.Identity
	// ExistingUser is informational: the backend already had a record for this email.
	ExistingUser bool
	// EnsureErr is set when the backend record could not be ensured. The account exists at
	// the provider regardless, so this never fails the sign-up itself.
	EnsureErr error
}

// Gateway wraps the identity provider and feeds its results into the Store.
type Gateway struct {
	store    *Store
	provider identity.Provider
	dir      Directory
	log      *zap.Logger
}

func NewGateway(store *Store, provider identity.Provider, dir Directory, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{store: store, provider: provider, dir: dir, log: log}
}

// Start mirrors provider state into the store. The first report settles the initial loading
// state: no identity means signed out, an identity goes through role resolution.
func (g *Gateway) Start() (stop func()) {
	return g.provider.ObserveState(func(id *domain.Identity) {
		g.store.setIdentity(id)
	})
}

func (g *Gateway) SignUp(ctx context.Context, email, password, displayName, photoURL string) (SignUpResult, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return SignUpResult{}, fmt.Errorf("sign up: %w", err)
	}
	if len(password) < minPasswordLen {
		return SignUpResult{}, fmt.Errorf("sign up: %w: at least %d characters", domain.ErrWeakPassword, minPasswordLen)
	}

	id, err := g.provider.CreateAccount(ctx, email, password)
	if err != nil {
		g.log.Info("sign up rejected", zap.String("email", email), zap.Error(err))
		return SignUpResult{}, fmt.Errorf("sign up: %w", err)
	}
	g.store.setIdentity(&id)

	displayName = strings.TrimSpace(displayName)
	photoURL = strings.TrimSpace(photoURL)
	if displayName != "" || photoURL != "" {
		updated, err := g.provider.UpdateProfile(ctx, displayName, photoURL)
		if err != nil {
			g.log.Warn("profile update failed", zap.String("uid", id.UID), zap.Error(err))
		} else {
			id = updated
			g.store.setIdentity(&id)
		}
	}

	res := g.ensureUser(ctx, id)
	g.log.Info("signed up", zap.String("uid", id.UID), zap.Bool("existing_user", res.ExistingUser))
	return res, nil
}

func (g *Gateway) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	id, err := g.provider.Authenticate(ctx, email, password)
	if err != nil {
		g.log.Info("login rejected", zap.String("email", email), zap.Error(err))
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	g.store.setIdentity(&id)
	g.log.Info("logged in", zap.String("uid", id.UID))
	return id, nil
}

func (g *Gateway) SignInWithFederatedProvider(ctx context.Context) (SignUpResult, error) {
	id, err := g.provider.AuthenticateFederated(ctx)
	if err != nil {
		g.log.Info("federated sign-in failed", zap.Error(err))
		return SignUpResult{}, fmt.Errorf("federated sign-in: %w", err)
	}
	g.store.setIdentity(&id)

	res := g.ensureUser(ctx, id)
	g.log.Info("federated sign-in", zap.String("uid", id.UID), zap.Bool("existing_user", res.ExistingUser))
	return res, nil
}

// Logout clears the local session first and then signs out at the provider. The session is
// cleared even when the provider call fails; the provider error is returned for reporting.
func (g *Gateway) Logout(ctx context.Context) error {
	g.store.setIdentity(nil)
	if err := g.provider.SignOut(ctx); err != nil {
		g.log.Warn("provider sign-out failed, local session cleared", zap.Error(err))
		return fmt.Errorf("logout: provider sign-out: %w", err)
	}
	g.log.Info("logged out")
	return nil
}

func (g *Gateway) ensureUser(ctx context.Context, id domain.Identity) SignUpResult {
	res := SignUpResult{Identity: id}
	out, err := g.dir.EnsureUser(ctx, domain.UserRecord{
		Name:       id.DisplayName,
		Email:      id.Email,
		PhotoURL:   id.PhotoURL,
		Properties: []string{},
	})
	if err != nil {
		g.log.Warn("ensure user record failed", zap.String("uid", id.UID), zap.Error(err))
		res.EnsureErr = err
		return res
	}
	res.ExistingUser = out.ExistingUser
	return res
}

func validateCredentials(email, password string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrCredential)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrCredential)
	}
	return nil
}
