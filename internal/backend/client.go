// Package backend is the REST client for the listings backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"estate-portal/internal/domain"
)

// TokenSource yields a fresh bearer token per call. identity.Provider satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type ridKey struct{}

// WithRequestID makes outbound calls made with ctx carry id as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ridKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(ridKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Tokens      TokenSource
	RPS         float64 // outbound request rate; 0 disables the limiter
	Burst       int
	MaxInFlight int64 // concurrent requests; 0 means 8
	Logger      *zap.Logger
	Metrics     *Metrics
}

type Client struct {
	base    *url.URL
	hc      *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	log     *zap.Logger
	metrics *Metrics
}

func New(o Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(o.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", o.BaseURL)
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if o.RPS > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	inFlight := o.MaxInFlight
	if inFlight <= 0 {
		inFlight = 8
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:    base,
		hc:      hc,
		tokens:  o.Tokens,
		limiter: limiter,
		sem:     semaphore.NewWeighted(inFlight),
		log:     log,
		metrics: o.Metrics,
	}, nil
}

// call describes one backend request. endpoint is the low-cardinality metrics label.
type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
	auth     bool
	out      any
}

func (c *Client) do(ctx context.Context, cl call) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s %s: rate limit: %w", domain.ErrNetwork, cl.method, cl.path, err)
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrNetwork, cl.method, cl.path, err)
	}
	defer c.sem.Release(1)

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.metrics.observe(cl.endpoint, cl.method, "error", time.Since(start).Seconds())
		c.log.Warn("backend request failed", zap.String("endpoint", cl.endpoint), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", domain.ErrNetwork, cl.method, cl.path, err)
	}
	defer resp.Body.Close()
	c.metrics.observe(cl.endpoint, cl.method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	c.log.Debug("backend request",
		zap.String("endpoint", cl.endpoint),
		zap.String("method", cl.method),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return newAPIError(cl.method, cl.path, resp.StatusCode, body)
	}
	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return fmt.Errorf("%w: %s %s: decode response: %w", domain.ErrNetwork, cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	target := c.base.String() + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("backend: marshal %s body: %w", cl.endpoint, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("backend: build %s request: %w", cl.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID(ctx))

	if cl.auth {
		if c.tokens == nil {
			return nil, fmt.Errorf("%w: %s requires a signed-in user", domain.ErrAuthorization, cl.endpoint)
		}
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNetwork) {
				return nil, fmt.Errorf("obtain token: %w", err)
			}
			return nil, fmt.Errorf("%w: obtain token: %w", domain.ErrAuthorization, err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func emailQuery(email string) url.Values {
	return url.Values{"email": {email}}
}

func idPath(prefix, id string) string {
	return prefix + "/" + url.PathEscape(id)
}
