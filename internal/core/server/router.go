package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter returns a bare engine with panic logging and CORS. origins empty allows any
// origin, which is what a loopback-only host needs.
func NewRouter(l *zap.Logger, origins ...string) *gin.Engine {
	r := gin.New()
	r.Use(ginzap.RecoveryWithZap(l, true))
	if len(origins) == 0 {
		r.Use(cors.Default())
	} else {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
		cfg.ExposeHeaders = []string{"X-Request-ID"}
		r.Use(cors.New(cfg))
	}
	return r
}

func StartHTTP(srv *http.Server, l *zap.Logger) error {
	l.Info("http starting", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration, errorLog *log.Logger) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20,
		ErrorLog:       errorLog,
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
