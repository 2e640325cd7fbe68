package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"estate-portal/internal/domain"
	"estate-portal/internal/guard"
	"estate-portal/internal/session"
	resp "estate-portal/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeSource struct {
	mu   sync.Mutex
	s    domain.Session
	subs []session.Listener
}

func (f *fakeSource) Snapshot() domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.Clone()
}

func (f *fakeSource) Subscribe(l session.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, l)
	return func() {}
}

func (f *fakeSource) set(s domain.Session) {
	f.mu.Lock()
	f.s = s
	subs := append([]session.Listener(nil), f.subs...)
	f.mu.Unlock()
	for _, l := range subs {
		l(s.Clone())
	}
}

func serve(r *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, bytes.NewReader(body)))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (resp.Resp, map[string]any) {
	t.Helper()
	var out struct {
		resp.Resp
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Resp, out.Data
}

func guardedEngine(src SessionSource, wait time.Duration) *gin.Engine {
	g := SessionGuard{Source: src, Paths: guard.DefaultPaths, Wait: wait}
	r := gin.New()
	ok := func(c *gin.Context) {
		s := c.MustGet(KeySession).(domain.Session)
		c.JSON(http.StatusOK, resp.OK(gin.H{"email": s.Identity.Email}))
	}
	r.GET("/my-properties", g.RequireAuthenticated(), ok)
	r.GET("/admin", g.RequireRole(domain.RoleAdmin), ok)
	return r
}

func TestSessionGuard_Decisions(t *testing.T) {
	alice := &domain.Identity{UID: "u1", Email: "a@b.com"}
	cases := []struct {
		name    string
		session domain.Session
		target  string
		status  int
		to      string
		from    string
	}{
		{"signed out private", domain.Session{}, "/my-properties?page=2", 401, "/login", "/my-properties?page=2"},
		{"signed in private", domain.Session{Identity: alice, Role: domain.RoleUser}, "/my-properties", 200, "", ""},
		{"signed out admin", domain.Session{}, "/admin", 401, "/login", ""},
		{"user on admin goes home", domain.Session{Identity: alice, Role: domain.RoleUser}, "/admin", 403, "/", ""},
		{"admin on admin", domain.Session{Identity: alice, Role: domain.RoleAdmin}, "/admin", 200, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{s: tc.session}
			w := serve(guardedEngine(src, 0), http.MethodGet, tc.target, nil)
			require.Equal(t, tc.status, w.Code)
			r, data := decode(t, w)
			if tc.status == 200 {
				assert.Equal(t, resp.CodeOK, r.Code)
				assert.Equal(t, "a@b.com", data["email"])
				return
			}
			assert.Equal(t, tc.status, r.Code)
			assert.Equal(t, tc.to, data["redirect"])
			if tc.from == "" {
				assert.NotContains(t, data, "from")
			} else {
				assert.Equal(t, tc.from, data["from"])
			}
		})
	}
}

func TestSessionGuard_LoadingWaitsForSettle(t *testing.T) {
	src := &fakeSource{s: domain.Session{Loading: true}}
	go func() {
		time.Sleep(20 * time.Millisecond)
		src.set(domain.Session{Identity: &domain.Identity{UID: "u1", Email: "a@b.com"}, Role: domain.RoleUser})
	}()
	w := serve(guardedEngine(src, time.Second), http.MethodGet, "/my-properties", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionGuard_LoadingNeverRedirects(t *testing.T) {
	src := &fakeSource{s: domain.Session{Loading: true}}
	w := serve(guardedEngine(src, 10*time.Millisecond), http.MethodGet, "/my-properties", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	_, data := decode(t, w)
	assert.NotContains(t, data, "redirect")
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/properties", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/properties?search=villa&token=secret", nil)
	req.Header.Set(KeyRequestID, "rid-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "rid-42", w.Header().Get(KeyRequestID))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "rid-42", fields["rid"])
	assert.EqualValues(t, 200, fields["status"])
	q := fields["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["token"])
	assert.Equal(t, []string{"villa"}, q["search"])

	w = serve(r, http.MethodGet, "/properties", nil)
	assert.NotEmpty(t, w.Header().Get(KeyRequestID))
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	out, _ := decode(t, w)
	assert.Equal(t, resp.CodeServerError, out.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(0.001, 2))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/x", nil).Code)
	w := serve(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })
	assert.Equal(t, http.StatusGatewayTimeout, serve(r, http.MethodGet, "/slow", nil).Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/properties/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/properties/1", nil)
	serve(r, http.MethodGet, "/properties/2", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/properties/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")))
}
