package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"estate-portal/internal/domain"
)

var alice = &domain.Identity{UID: "u1", Email: "a@b.com"}

func TestRequireAuthenticated(t *testing.T) {
	tests := []struct {
		name    string
		session domain.Session
		want    Decision
	}{
		{"loading, signed out", domain.Session{Loading: true}, Decision{Outcome: Pending}},
		{"loading, identity known", domain.Session{Identity: alice, Loading: true}, Decision{Outcome: Pending}},
		{"signed out", domain.Session{}, Decision{Outcome: RedirectedToLogin, To: "/login", From: "/my-properties"}},
		{"signed in", domain.Session{Identity: alice, Role: domain.RoleUser}, Decision{Outcome: Allowed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequireAuthenticated(tt.session, "/my-properties"))
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		session domain.Session
		want    Outcome
		to      string
	}{
		{"loading", domain.Session{Identity: alice, Loading: true}, Pending, ""},
		{"signed out", domain.Session{}, RedirectedToLogin, "/login"},
		{"user is sent home, not to login", domain.Session{Identity: alice, Role: domain.RoleUser}, RedirectedHome, "/"},
		{"admin", domain.Session{Identity: alice, Role: domain.RoleAdmin}, Allowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RequireRole(tt.session, domain.RoleAdmin)
			assert.Equal(t, tt.want, d.Outcome)
			assert.Equal(t, tt.to, d.To)
		})
	}
}

func TestPendingNeverRedirects(t *testing.T) {
	for _, s := range []domain.Session{
		{Loading: true},
		{Identity: alice, Loading: true},
		{Identity: alice, Role: domain.RoleUser, Loading: true},
	} {
		assert.False(t, RequireAuthenticated(s, "/x").Redirect())
		assert.False(t, RequireRole(s, domain.RoleAdmin).Redirect())
	}
}

func TestCustomPathsAndPostLoginTarget(t *testing.T) {
	p := Paths{Login: "/signin", Home: "/home"}
	assert.Equal(t, "/signin", p.RequireAuthenticated(domain.Session{}, "/a").To)
	assert.Equal(t, "/home", p.RequireRole(domain.Session{Identity: alice, Role: domain.RoleUser}, domain.RoleAdmin).To)

	assert.Equal(t, "/my-properties", p.PostLoginTarget("/my-properties"))
	assert.Equal(t, "/home", p.PostLoginTarget(""))
	assert.Equal(t, "/home", p.PostLoginTarget("//evil.example"))
	assert.Equal(t, "/home", p.PostLoginTarget("https://evil.example"))
	assert.Equal(t, "/home", p.PostLoginTarget("/signin"))
	assert.Equal(t, "redirect-home", RedirectedHome.String())
}
