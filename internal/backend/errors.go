package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"estate-portal/internal/domain"
)

// APIError is a non-2xx answer from the backend. It unwraps to the domain error matching
// its status, so callers classify with errors.Is.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthorization
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation
	}
	return domain.ErrNetwork
}

// maxMessageBytes caps the raw body kept as an APIError message.
const maxMessageBytes = 200

// errorBody is the error document shapes the backend is known to send.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Msg     string `json:"msg"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		for _, m := range []string{eb.Message, eb.Error, eb.Msg} {
			if m != "" {
				e.Message = m
				return e
			}
		}
	}
	e.Message = truncate(strings.TrimSpace(string(body)), maxMessageBytes)
	return e
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
