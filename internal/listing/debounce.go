package listing

import (
	"sync"
	"time"
)

const DefaultDebounce = 300 * time.Millisecond

// Timer is the part of *time.Timer the debouncer uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the production implementation.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Debouncer runs the most recent function once the input has been quiet for the window.
type Debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	after AfterFunc
	timer Timer
	seq   uint64
}

func NewDebouncer(wait time.Duration, after AfterFunc) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	if after == nil {
		after = stdAfterFunc
	}
	return &Debouncer{wait: wait, after: after}
}

// Trigger restarts the window; f runs once the window elapses without another Trigger.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.after(d.wait, func() {
		d.mu.Lock()
		// a timer that fired while being stopped must not run
		current := seq == d.seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			f()
		}
	})
}

// Stop drops a pending call. It reports whether one was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}
