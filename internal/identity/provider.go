// Package identity wraps the external identity provider behind a small interface.
//
// Implementations normalize provider failures onto the domain error taxonomy
// (domain.ErrCredential, domain.ErrWeakPassword, ...), so callers never inspect
// provider-specific codes.
package identity

import (
	"context"
	"errors"
	"slices"
	"sync"

	"estate-portal/internal/domain"
)

// ErrSignedOut is returned by Token when no identity is signed in.
var ErrSignedOut = errors.New("identity: no signed-in user")

// StateFunc receives the current identity, or nil after sign-out.
type StateFunc func(*domain.Identity)

// Provider is the identity provider boundary.
type Provider interface {
	// CreateAccount registers a new email/password account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (domain.Identity, error)
	// Authenticate signs in with email/password.
	Authenticate(ctx context.Context, email, password string) (domain.Identity, error)
	// AuthenticateFederated runs the provider-controlled prompt (popup/redirect) and signs in.
	AuthenticateFederated(ctx context.Context) (domain.Identity, error)
	// UpdateProfile sets display name and photo on the signed-in identity.
	UpdateProfile(ctx context.Context, displayName, photoURL string) (domain.Identity, error)
	// SignOut ends the provider session.
	SignOut(ctx context.Context) error
	// ObserveState delivers the current state immediately and every change afterwards.
	ObserveState(fn StateFunc) (unsubscribe func())
	// Token returns a short-lived bearer token for the signed-in identity.
	Token(ctx context.Context) (string, error)
}

// FederatedCredential is what the prompt hands back after the user completes the popup.
type FederatedCredential struct {
	IDToken     string // Google ID token, consumed by Firebase
	Email       string // consumed by the local provider
	DisplayName string
	PhotoURL    string
}

// Prompter runs the provider-controlled federated sign-in interaction.
// Returning domain.ErrPopupClosed, or an empty credential, means the user cancelled.
type Prompter interface {
	Prompt(ctx context.Context) (FederatedCredential, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (FederatedCredential, error)

func (f PrompterFunc) Prompt(ctx context.Context) (FederatedCredential, error) { return f(ctx) }

type credentialKey struct{}

// WithFederatedCredential attaches a credential the caller already obtained from the
// provider's popup, for ContextPrompter to hand over.
func WithFederatedCredential(ctx context.Context, cred FederatedCredential) context.Context {
	return context.WithValue(ctx, credentialKey{}, cred)
}

// ContextPrompter answers with the credential attached by WithFederatedCredential. A
// missing or empty credential counts as a closed popup.
var ContextPrompter Prompter = PrompterFunc(func(ctx context.Context) (FederatedCredential, error) {
	cred, _ := ctx.Value(credentialKey{}).(FederatedCredential)
	if cred.IDToken == "" && cred.Email == "" {
		return FederatedCredential{}, domain.ErrPopupClosed
	}
	return cred, nil
})

// observers is the listener registry shared by the provider implementations.
type observers struct {
	mu   sync.Mutex
	next int
	fns  map[int]StateFunc
}

func (o *observers) add(fn StateFunc) func() {
	o.mu.Lock()
	if o.fns == nil {
		o.fns = map[int]StateFunc{}
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers) notify(id *domain.Identity) {
	o.mu.Lock()
	keys := make([]int, 0, len(o.fns))
	for k := range o.fns {
		keys = append(keys, k)
	}
	fns := make([]StateFunc, 0, len(keys))
	slices.Sort(keys)
	for _, k := range keys {
		fns = append(fns, o.fns[k])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}
