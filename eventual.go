package coalescer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// EventualThrottler combines throttling with a trailing call per identifier,
// guaranteeing eventual consistency: a callback runs immediately when the
// rate limiter allows it; otherwise exactly one trailing callback is
// scheduled for the next window, so the final event of a burst is never lost.
//
// Unlike Throttler, the window is fixed at construction and the trailing
// callback keeps the closure it was scheduled with.
type EventualThrottler struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]*eventualEntry
}

type eventualEntry struct {
	lim     *rate.Limiter
	pending atomic.Bool
}

// NewEventualThrottler creates an EventualThrottler allowing at most one
// callback per window per identifier.
func NewEventualThrottler(window time.Duration) *EventualThrottler {
	return &EventualThrottler{
		window:  window,
		entries: make(map[string]*eventualEntry),
	}
}

func (t *EventualThrottler) entry(id string) *eventualEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		e = &eventualEntry{lim: rate.NewLimiter(rate.Every(t.window), 1)}
		t.entries[id] = e
	}
	return e
}

// Execute runs callback immediately if the window for id is open. Otherwise
// it blocks until the window reopens and then runs callback, unless a
// trailing call is already pending for id, in which case it returns nil
// immediately.
func (t *EventualThrottler) Execute(ctx context.Context, id string, callback func() error) error {
	e := t.entry(id)
	if e.lim.Allow() {
		return callback()
	}
	if !e.pending.CompareAndSwap(false, true) {
		return nil
	}
	if err := e.lim.Wait(ctx); err != nil {
		e.pending.Store(false)
		return fmt.Errorf("wait for throttle window: %w", err)
	}
	e.pending.Store(false)
	return callback()
}

// ExecuteOrSchedule is the asynchronous counterpart to Execute: when the
// window for id is closed it schedules callback for the window's reopening
// and returns immediately. At most one trailing callback is scheduled per id.
func (t *EventualThrottler) ExecuteOrSchedule(id string, callback func()) {
	e := t.entry(id)
	if e.lim.Allow() {
		callback()
		return
	}
	if !e.pending.CompareAndSwap(false, true) {
		return
	}
	delay := e.lim.Reserve().Delay()
	time.AfterFunc(delay, func() {
		e.pending.Store(false)
		callback()
	})
}

// Forget drops the limiter state for id; the next call for id starts with an
// open window.
func (t *EventualThrottler) Forget(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}
