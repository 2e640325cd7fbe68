package listing

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"estate-portal/internal/domain"
)

// Fetcher performs the backend listing request.
type Fetcher interface {
	FetchProperties(ctx context.Context, q url.Values) ([]domain.Property, error)
}

type FetcherFunc func(ctx context.Context, q url.Values) ([]domain.Property, error)

func (f FetcherFunc) FetchProperties(ctx context.Context, q url.Values) ([]domain.Property, error) {
	return f(ctx, q)
}

// View is what a listing screen renders.
type View struct {
	Params Params
	Result
	// Loading is true while a backend request for the current params is pending.
	Loading bool
	// Err is the last fetch failure. Items keep showing the last good response.
	Err error
	// FetchedAt is when the last good response arrived; zero before the first one.
	FetchedAt time.Time
}

type Options struct {
	PageSize  int
	Debounce  time.Duration
	Defaults  *Params
	AfterFunc AfterFunc
	Logger    *zap.Logger
	Now       func() time.Time
}

// Engine drives one listing view. Search and sort changes are debounced into backend
// requests; local filter and page changes re-refine the last good response immediately.
type Engine struct {
	fetcher   Fetcher
	debouncer *Debouncer
	log       *zap.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	params    Params
	items     []domain.Property
	err       error
	loading   bool
	version   uint64
	fetchedAt time.Time
}

func NewEngine(f Fetcher, opts Options) *Engine {
	p := DefaultParams()
	if opts.Defaults != nil {
		p = *opts.Defaults
	}
	if opts.PageSize > 0 {
		p.PageSize = opts.PageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		fetcher:   f,
		debouncer: NewDebouncer(opts.Debounce, opts.AfterFunc),
		log:       log,
		now:       now,
		ctx:       ctx,
		cancel:    cancel,
		params:    p,
	}
}

// View returns the current page of the last good response refined by the current params.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	res := Refine(e.items, e.params)
	return View{Params: e.params, Result: res, Loading: e.loading, Err: e.err, FetchedAt: e.fetchedAt}
}

// Update applies mutate to the params. Any filter change resets the page to 1. A change to
// search or sort schedules a debounced backend request; the returned view still shows the
// previous response until it arrives.
func (e *Engine) Update(mutate func(Params) Params) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := mutate(e.params)
	if err := next.Validate(); err != nil {
		return e.viewLocked(), err
	}
	if next.PageSize <= 0 {
		next.PageSize = e.params.PageSize
	}
	if e.params.filtersChanged(next) {
		next.Page = 1
	}
	fetch := e.params.serverSideChanged(next)
	e.params = next

	if fetch {
		e.loading = true
		e.debouncer.Trigger(func() {
			if err := e.fetch(e.ctx); err != nil {
				e.log.Warn("listing fetch failed", zap.Error(err))
			}
		})
	}
	e.clampLocked()
	return e.viewLocked(), nil
}

// Refresh fetches immediately for the current params, dropping any pending debounced
// request. Used for the initial load and for explicit reloads.
func (e *Engine) Refresh(ctx context.Context) error {
	e.debouncer.Stop()
	e.mu.Lock()
	e.loading = true
	e.mu.Unlock()
	return e.fetch(ctx)
}

// Close stops pending work. In-flight responses are discarded.
func (e *Engine) Close() {
	e.debouncer.Stop()
	e.cancel()
	e.mu.Lock()
	e.version++
	e.loading = false
	e.mu.Unlock()
}

func (e *Engine) fetch(ctx context.Context) error {
	e.mu.Lock()
	e.version++
	version := e.version
	q := e.params.BackendQuery()
	e.mu.Unlock()

	items, err := e.fetcher.FetchProperties(ctx, q)

	e.mu.Lock()
	defer e.mu.Unlock()
	if version != e.version {
		e.log.Debug("discarding superseded listing response", zap.String("query", q.Encode()))
		return nil
	}
	e.loading = false
	if err != nil {
		e.err = fmt.Errorf("load listings: %w", err)
		return e.err
	}
	e.items = items
	e.err = nil
	e.fetchedAt = e.now()
	e.clampLocked()
	e.log.Debug("listing loaded", zap.String("query", q.Encode()), zap.Int("count", len(items)))
	return nil
}

// clampLocked writes back the clamped page so paging continues from what is displayed.
func (e *Engine) clampLocked() {
	res := Refine(e.items, e.params)
	e.params.Page = res.Page
}
