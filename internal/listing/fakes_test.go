package listing

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"estate-portal/internal/domain"
)

// fakeClock fires timers only from Advance, on the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type fetchCall struct {
	at    time.Duration
	query url.Values
}

type fakeFetcher struct {
	mu    sync.Mutex
	clock *fakeClock
	calls []fetchCall
	// respond answers call n (0-based); nil means return items.
	respond func(ctx context.Context, n int) ([]domain.Property, error)
	items   []domain.Property
}

func (f *fakeFetcher) FetchProperties(ctx context.Context, q url.Values) ([]domain.Property, error) {
	f.mu.Lock()
	n := len(f.calls)
	var at time.Duration
	if f.clock != nil {
		at = f.clock.Now()
	}
	f.calls = append(f.calls, fetchCall{at: at, query: q})
	respond, items := f.respond, f.items
	f.mu.Unlock()
	if respond != nil {
		return respond(ctx, n)
	}
	return items, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) call(n int) fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[n]
}

var categories = []domain.Category{domain.CategorySale, domain.CategoryRent, domain.CategoryCommercial, domain.CategoryLand}
var cities = []string{"Dhaka", "Chittagong", "Sylhet", "Khulna", "New Dhaka"}

// properties returns n listings with cycling categories and cities and price (i+1)*1000.
func properties(n int) []domain.Property {
	out := make([]domain.Property, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = domain.Property{
			ID:         fmt.Sprintf("p%02d", i),
			Name:       fmt.Sprintf("Property %d", i),
			Category:   categories[i%len(categories)],
			Price:      float64(i+1) * 1000,
			Location:   domain.Location{City: cities[i%len(cities)], Area: "Center"},
			PostedDate: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
