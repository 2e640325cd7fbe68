// Package handler exposes the portal views as JSON actions. Route groups and guards are
// assembled by the router package.
package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estate-portal/internal/domain"
	"estate-portal/internal/guard"
	"estate-portal/internal/listing"
	"estate-portal/internal/portal"
	"estate-portal/internal/session"
	"estate-portal/internal/transport/http/ez"
)

// Auth is the sign-in surface of session.Gateway.
type Auth interface {
	SignUp(ctx context.Context, email, password, displayName, photoURL string) (session.SignUpResult, error)
	Login(ctx context.Context, email, password string) (domain.Identity, error)
	SignInWithFederatedProvider(ctx context.Context) (session.SignUpResult, error)
	Logout(ctx context.Context) error
}

type Deps struct {
	Auth     Auth
	Sessions portal.Sessions
	Paths    guard.Paths

	Listing  *listing.Engine
	Featured listing.Fetcher

	Details      *portal.PropertyDetails
	AddProperty  *portal.AddProperty
	MyProperties *portal.MyProperties
	Ratings      *portal.Ratings
	Dashboard    *portal.Dashboard
	Admin        *portal.Admin

	Log *zap.Logger
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Paths == (guard.Paths{}) {
		d.Paths = guard.DefaultPaths
	}
	return &Handler{Deps: d}
}

func (h *Handler) ez(g *gin.RouterGroup) ez.EZ { return ez.New(g, h.Log) }

// Public mounts the routes reachable without a session; the sign-in actions go on auth.
func (h *Handler) Public(g, auth *gin.RouterGroup) {
	h.mountSession(g)
	h.mountAuth(auth)
	h.mountListing(g)
}

// Private mounts the routes that need a signed-in user.
func (h *Handler) Private(g *gin.RouterGroup) {
	h.mountProperties(g)
	h.mountRatings(g)
	h.mountDashboard(g)
}

// AdminOnly mounts the admin panel.
func (h *Handler) AdminOnly(g *gin.RouterGroup) {
	h.mountAdmin(g)
}
