// Package app wires the portal host from configuration.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"estate-portal/internal/backend"
	"estate-portal/internal/backend/backendtest"
	"estate-portal/internal/core/auth"
	"estate-portal/internal/core/cache"
	"estate-portal/internal/core/config"
	"estate-portal/internal/guard"
	"estate-portal/internal/identity"
	"estate-portal/internal/listing"
	"estate-portal/internal/portal"
	"estate-portal/internal/session"
	"estate-portal/internal/transport/http/handler"
	"estate-portal/internal/transport/http/router"
)

type Options struct {
	// Dev replaces the identity provider with the local one and the backend with an
	// in-process fake, so the portal runs without external services.
	Dev bool
	// Registry collects the host and backend metrics; a fresh one when nil.
	Registry *prometheus.Registry
}

type App struct {
	Engine   *gin.Engine
	Store    *session.Store
	Gateway  *session.Gateway
	Resolver *session.Resolver
	Listing  *listing.Engine
	Backend  *backend.Client
	Provider identity.Provider
	Registry *prometheus.Registry

	// DevBackend is the in-process backend in dev mode, nil otherwise.
	DevBackend *backendtest.Server

	log   *zap.Logger
	cache *cache.Cache
	stops []func()
}

func New(cfg *config.Config, log *zap.Logger, opt Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	reg := opt.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	a := &App{Registry: reg, log: log}

	baseURL := cfg.Backend.BaseURL
	if opt.Dev {
		jwter, err := devJWTer(cfg.Identity)
		if err != nil {
			return nil, err
		}
		a.DevBackend = backendtest.New(jwter).Start()
		baseURL = a.DevBackend.URL()
		a.Provider = identity.NewLocal(identity.LocalOptions{
			JWTer:    jwter,
			Prompter: identity.ContextPrompter,
			Logger:   log.Named("identity"),
		})
		log.Warn("dev mode: local identity provider and in-process backend", zap.String("backend", baseURL))
	} else {
		switch cfg.Identity.Provider {
		case "local":
			jwter, err := devJWTer(cfg.Identity)
			if err != nil {
				return nil, err
			}
			a.Provider = identity.NewLocal(identity.LocalOptions{JWTer: jwter, Prompter: identity.ContextPrompter, Logger: log.Named("identity")})
		default:
			a.Provider = identity.NewFirebase(identity.FirebaseOptions{
				APIKey:         cfg.Identity.APIKey,
				IdentityURL:    cfg.Identity.IdentityURL,
				SecureTokenURL: cfg.Identity.SecureTokenURL,
				HTTPClient:     &http.Client{Timeout: cfg.Backend.Timeout()},
				Prompter:       identity.ContextPrompter,
				Logger:         log.Named("identity"),
			})
		}
	}

	be, err := backend.New(backend.Options{
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{Timeout: cfg.Backend.Timeout()},
		Tokens:      a.Provider,
		RPS:         cfg.Backend.RPS,
		Burst:       cfg.Backend.Burst,
		MaxInFlight: cfg.Backend.MaxInFlight,
		Logger:      log.Named("backend"),
		Metrics:     backend.NewMetrics(reg),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Backend = be

	a.Store = session.NewStore()
	a.Gateway = session.NewGateway(a.Store, a.Provider, be, log.Named("session"))
	a.Resolver = session.NewResolver(a.Store, be, log.Named("session"))

	a.cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log.Named("cache"))
	listings := listing.NewCached(be, a.cache, cfg.Listing.CacheTTL())
	defaults := listing.DefaultParams()
	if f := listing.SortField(cfg.Listing.SortBy); f.Valid() {
		defaults.SortBy = f
	}
	if o := listing.SortOrder(cfg.Listing.Order); o.Valid() {
		defaults.Order = o
	}
	a.Listing = listing.NewEngine(listings, listing.Options{
		PageSize: cfg.Listing.PageSize,
		Debounce: cfg.Listing.Debounce(),
		Defaults: &defaults,
		Logger:   log.Named("listing"),
	})

	plog := log.Named("portal")
	h := handler.New(handler.Deps{
		Auth:         a.Gateway,
		Sessions:     a.Store,
		Paths:        guard.Paths{Login: cfg.Guard.LoginPath, Home: cfg.Guard.HomePath},
		Listing:      a.Listing,
		Featured:     listings,
		Details:      portal.NewPropertyDetails(be),
		AddProperty:  portal.NewAddProperty(be, a.Store, listings, plog),
		MyProperties: portal.NewMyProperties(be, a.Store, listings, plog),
		Ratings:      portal.NewRatings(be, a.Store, plog),
		Dashboard:    portal.NewDashboard(be, a.Store),
		Admin:        portal.NewAdmin(be, a.Store, listings, plog),
		Log:          plog,
	})
	a.Engine = router.NewPortalEngine(log.Named("http"), h, router.Options{
		Sessions: a.Store,
		Paths:    guard.Paths{Login: cfg.Guard.LoginPath, Home: cfg.Guard.HomePath},
		Registry: reg,
		RPS:      rate.Limit(200),
		Burst:    400,
		Timeout:  cfg.Backend.Timeout() + 5*time.Second,
	})
	return a, nil
}

// Start begins mirroring the provider state into the session store. ctx bounds role fetches.
func (a *App) Start(ctx context.Context) {
	a.stops = append(a.stops, a.Resolver.Start(ctx), a.Gateway.Start())
}

// Close stops the session observers and releases the cache and the dev backend.
func (a *App) Close() {
	for i := len(a.stops) - 1; i >= 0; i-- {
		a.stops[i]()
	}
	a.stops = nil
	if a.Resolver != nil {
		a.Resolver.Wait()
	}
	if a.Listing != nil {
		a.Listing.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close", zap.Error(err))
		}
	}
	if a.DevBackend != nil {
		a.DevBackend.Close()
	}
}

func devJWTer(c config.Identity) (*auth.JWTer, error) {
	secret := []byte(c.JWTSecret)
	if len(secret) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate dev secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(buf))
	}
	ttl := time.Duration(c.TokenTTLMin) * time.Minute
	if ttl <= 0 {
		return nil, errors.New("identity.tokenTTLMin must be positive")
	}
	return &auth.JWTer{Secret: secret, Issuer: c.Issuer, TTL: ttl}, nil
}
