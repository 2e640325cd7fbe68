package domain

// UserRecord is the backend's user document.
type UserRecord struct {
	ID         string   `json:"_id,omitempty"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	PhotoURL   string   `json:"photoURL,omitempty"`
	Role       string   `json:"role,omitempty"`
	Properties []string `json:"properties"`
}

// EnsureUserResult is the backend answer to the idempotent "ensure user record exists" call.
type EnsureUserResult struct {
	ExistingUser bool   `json:"existingUser"`
	InsertedID   string `json:"insertedId,omitempty"`
}
