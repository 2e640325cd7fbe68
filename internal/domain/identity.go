package domain

import "time"

// Identity is the principal reported by the identity provider. Bearer tokens are not part of
// it; they are re-derived from the provider for every authenticated call.
type Identity struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	ProviderID  string    `json:"providerId"` // "password" / "google.com" / "local"
	CreatedAt   time.Time `json:"createdAt"`
}

// Name returns the display name, or a placeholder for accounts that never set one.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return "Anonymous User"
}
