package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/domain"
	"estate-portal/internal/guard"
	"estate-portal/internal/session"
	resp "estate-portal/internal/transport/http/response"
)

// KeySession holds the domain.Session a guard admitted the request with.
const KeySession = "session"

// SessionSource is the read side of session.Store.
type SessionSource interface {
	Snapshot() domain.Session
	Subscribe(l session.Listener) (unsubscribe func())
}

// SessionGuard gates a route group on the process session. decide is one of the guard
// predicates. While the session is still loading the request waits up to wait for it to
// settle instead of redirecting early; if it does not settle the client gets 503.
type SessionGuard struct {
	Source SessionSource
	Paths  guard.Paths
	Wait   time.Duration
}

func (g SessionGuard) RequireAuthenticated() gin.HandlerFunc {
	return g.gate(func(s domain.Session, path string) guard.Decision {
		return g.Paths.RequireAuthenticated(s, path)
	})
}

func (g SessionGuard) RequireRole(role domain.Role) gin.HandlerFunc {
	return g.gate(func(s domain.Session, _ string) guard.Decision {
		return g.Paths.RequireRole(s, role)
	})
}

func (g SessionGuard) gate(decide func(domain.Session, string) guard.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := settle(c.Request.Context(), g.Source, g.Wait)
		d := decide(s, c.Request.URL.RequestURI())
		if !ok || d.Pending() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp.Error(resp.CodeUnavailable, "session is loading"))
			return
		}
		switch d.Outcome {
		case guard.Allowed:
			c.Set(KeySession, s)
			c.Next()
		case guard.RedirectedToLogin:
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.ErrorWith(resp.CodeUnauthorized, "sign in required", redirect(d)))
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, resp.ErrorWith(resp.CodeForbidden, "forbidden", redirect(d)))
		}
	}
}

func redirect(d guard.Decision) gin.H {
	h := gin.H{"redirect": d.To}
	if d.From != "" {
		h["from"] = d.From
	}
	return h
}

// settle returns the first non-loading snapshot, waiting at most wait. ok is false when
// the session was still loading at the deadline.
func settle(ctx context.Context, src SessionSource, wait time.Duration) (s domain.Session, ok bool) {
	if s = src.Snapshot(); !s.Loading {
		return s, true
	}
	if wait <= 0 {
		return s, false
	}
	ch := make(chan domain.Session, 1)
	unsubscribe := src.Subscribe(func(st domain.Session) {
		if st.Loading {
			return
		}
		select {
		case ch <- st:
		default:
		}
	})
	defer unsubscribe()
	// it may have settled between the first snapshot and the subscription
	if s = src.Snapshot(); !s.Loading {
		return s, true
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case s = <-ch:
		return s, true
	case <-t.C:
		return src.Snapshot(), false
	case <-ctx.Done():
		return src.Snapshot(), false
	}
}
