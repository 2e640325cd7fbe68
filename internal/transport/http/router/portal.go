package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"estate-portal/internal/core/server"
	"estate-portal/internal/domain"
	"estate-portal/internal/guard"
	"estate-portal/internal/transport/http/handler"
	mdw "estate-portal/internal/transport/http/middleware"
)

type Options struct {
	Sessions  mdw.SessionSource
	Paths     guard.Paths
	GuardWait time.Duration // how long a guarded request waits for a loading session

	// Registry receives the host metrics and backs /metrics; nil disables both.
	Registry *prometheus.Registry

	Origins     []string
	RPS         rate.Limit
	Burst       int
	AuthRPS     rate.Limit // per client address on /auth
	AuthBurst   int
	MaxInFlight int64
	MaxBody     int64
	Timeout     time.Duration
}

func (o *Options) defaults() {
	if o.Paths == (guard.Paths{}) {
		o.Paths = guard.DefaultPaths
	}
	if o.GuardWait == 0 {
		o.GuardWait = 5 * time.Second
	}
	if o.RPS == 0 {
		o.RPS, o.Burst = 200, 400
	}
	if o.AuthRPS == 0 {
		o.AuthRPS, o.AuthBurst = 1, 10
	}
	if o.MaxInFlight == 0 {
		o.MaxInFlight = 300
	}
	if o.MaxBody == 0 {
		o.MaxBody = 1 << 20
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
}

// NewPortalEngine serves the portal views under /api/v1:
//
//	public   /session /auth/* /home /properties
//	signed in /properties/:id, POST /properties, /my-properties, /my-ratings, /dashboard
//	admin    /admin
func NewPortalEngine(l *zap.Logger, h *handler.Handler, o Options) *gin.Engine {
	o.defaults()
	r := server.NewRouter(l, o.Origins...)

	chain := []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(o.RPS, o.Burst),
		mdw.ConcurrencyLimit(o.MaxInFlight),
		mdw.MaxBodyBytes(o.MaxBody),
		mdw.Timeout(o.Timeout),
		mdw.Recovery(l),
	}
	if o.Registry != nil {
		chain = append(chain, mdw.NewHTTPMetrics(o.Registry).Handler())
	}
	chain = append(chain, mdw.AccessLog(l))
	r.Use(chain...)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	if o.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	h.Public(api, api.Group("/auth", mdw.RateLimitPerIP(o.AuthRPS, o.AuthBurst)))

	g := mdw.SessionGuard{Source: o.Sessions, Paths: o.Paths, Wait: o.GuardWait}
	h.Private(api.Group("", g.RequireAuthenticated()))
	h.AdminOnly(api.Group("/admin", g.RequireRole(domain.RoleAdmin)))

	return r
}
