// Package domain holds the portal's entities and the error taxonomy shared by all layers.
package domain

import "errors"

var (
	// ErrCredential indicates a malformed, duplicate or otherwise unusable email/password.
	ErrCredential = errors.New("invalid credential")

	// ErrWeakPassword indicates the provider rejected the password strength.
	ErrWeakPassword = errors.New("weak password")

	// ErrInvalidCredentials indicates an email/password mismatch on sign-in.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTooManyAttempts indicates the provider is throttling sign-in attempts.
	ErrTooManyAttempts = errors.New("too many attempts")

	// ErrPopupClosed indicates the user cancelled federated sign-in.
	ErrPopupClosed = errors.New("sign-in popup closed")

	// ErrNetwork covers any fetch failure: transport, unexpected status, undecodable body.
	ErrNetwork = errors.New("network error")

	// ErrAuthorization indicates the backend rejected the call due to role or ownership.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates local or backend input validation failed.
	ErrValidation = errors.New("validation failed")
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrWeakPassword, "Password should be at least 6 characters."},
	{ErrCredential, "Please check the email address and password."},
	{ErrInvalidCredentials, "Invalid email or password."},
	{ErrTooManyAttempts, "Too many attempts. Please try again later."},
	{ErrPopupClosed, "Sign-in was cancelled."},
	{ErrAuthorization, "You are not allowed to do that."},
	{ErrNotFound, "Not found."},
	{ErrValidation, "Please check the form and try again."},
	{ErrNetwork, "Could not reach the server. Please try again."},
}

// UserMessage maps err onto the message shown to the user next to the initiating form.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong. Please try again."
}
