// Package guard decides whether a navigation may proceed, based only on a session snapshot.
package guard

import (
	"strings"

	"estate-portal/internal/domain"
)

// Outcome is the state a protected route ends in for one navigation.
type Outcome int

const (
	// Pending: the session is still loading; render nothing and do not redirect yet.
	Pending Outcome = iota
	Allowed
	RedirectedToLogin
	RedirectedHome
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allowed:
		return "allowed"
	case RedirectedToLogin:
		return "redirect-login"
	case RedirectedHome:
		return "redirect-home"
	}
	return "unknown"
}

// Decision is the result of a guard. To is set for redirects; From carries the original
// path when the guard asks the login page to send the user back afterwards.
type Decision struct {
	Outcome Outcome
	To      string
	From    string
}

func (d Decision) Allowed() bool { return d.Outcome == Allowed }
func (d Decision) Pending() bool { return d.Outcome == Pending }
func (d Decision) Redirect() bool { return d.Outcome == RedirectedToLogin || d.Outcome == RedirectedHome }

// Paths are the redirect targets.
type Paths struct {
	Login string
	Home  string
}

var DefaultPaths = Paths{Login: "/login", Home: "/"}

// RequireAuthenticated allows any signed-in identity and sends everyone else to the login
// page, preserving originalPath.
func (p Paths) RequireAuthenticated(s domain.Session, originalPath string) Decision {
	if s.Loading {
		return Decision{Outcome: Pending}
	}
	if !s.Authenticated() {
		return Decision{Outcome: RedirectedToLogin, To: p.Login, From: originalPath}
	}
	return Decision{Outcome: Allowed}
}

// RequireRole allows identities holding role. Signed-out users go to login; signed-in users
// with another role go home, since sending them to login would loop.
func (p Paths) RequireRole(s domain.Session, role domain.Role) Decision {
	if s.Loading {
		return Decision{Outcome: Pending}
	}
	if !s.Authenticated() {
		return Decision{Outcome: RedirectedToLogin, To: p.Login}
	}
	if s.Role != role {
		return Decision{Outcome: RedirectedHome, To: p.Home}
	}
	return Decision{Outcome: Allowed}
}

// PostLoginTarget is where a successful login navigates: the preserved path, or home.
// Only same-site absolute paths are honoured, and never the login page itself.
func (p Paths) PostLoginTarget(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || from == p.Login {
		return p.Home
	}
	return from
}

func RequireAuthenticated(s domain.Session, originalPath string) Decision {
	return DefaultPaths.RequireAuthenticated(s, originalPath)
}

func RequireRole(s domain.Session, role domain.Role) Decision {
	return DefaultPaths.RequireRole(s, role)
}
