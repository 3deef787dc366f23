package coalescer

import (
	"context"
	"sync"
	"time"

	"github.com/quenchkit/go-coalescer/core"
)

const kindThrottle = "throttle"

// Throttler rate-limits actions per identifier: at most one execution per
// delay window, always carrying the most recent trigger's payload. A trigger
// arriving while the window is closed schedules a deferred fire for the
// moment the window reopens; later triggers within the same window replace
// that fire's payload rather than queueing up.
//
// Last-fire timestamps persist after the scheduled item is gone, so the
// cool-down is honored across idle periods. Forget clears them.
type Throttler struct {
	mu       sync.Mutex
	entries  map[string]*throttleEntry
	lastFire map[string]time.Time
	counts   counters
	opts     options
	closed   bool
}

type throttleEntry struct {
	handle *core.Handle
}

// NewThrottler creates a Throttler.
func NewThrottler(opts ...Option) *Throttler {
	return &Throttler{
		entries:  make(map[string]*throttleEntry),
		lastFire: make(map[string]time.Time),
		opts:     newOptions(opts),
	}
}

// Trigger requests an execution of task for id on runner (nil falls back to
// the WithRunner default, or inline/timer execution).
//
// If at least delay has passed since the last fire for id, task fires now:
// inline when the caller already executes on the requested runner (per
// RunnerFromContext on ctx) or no runner is involved, otherwise posted
// without blocking the caller. If the window is still closed, task is
// scheduled for when it reopens, superseding any pending fire so the newest
// payload wins. A stale pending action is never run.
func (t *Throttler) Trigger(
	ctx context.Context, id string, delay time.Duration, runner core.Runner, task core.Task,
) {
	if ctx == nil {
		ctx = context.Background()
	}
	if runner == nil {
		runner = t.opts.runner
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.opts.logger.Debug("trigger dropped, throttler closed", core.F("id", id))
		return
	}
	t.counts.triggers++

	if prev, ok := t.entries[id]; ok {
		prev.handle.Cancel()
		delete(t.entries, id)
		t.counts.coalesced++
		t.opts.metrics.RecordTrigger(kindThrottle, core.OutcomeCoalesced)
	}

	now := time.Now()
	// A missing last-fire timestamp dates the window to the epoch, so the
	// first trigger for an identifier always fires immediately.
	remaining := delay - now.Sub(t.lastFire[id])

	if remaining <= 0 {
		t.lastFire[id] = now
		t.counts.fires++
		t.opts.metrics.RecordTrigger(kindThrottle, core.OutcomeFired)
		t.mu.Unlock()
		t.opts.metrics.RecordFire(kindThrottle, 0)
		if runner == nil || core.RunnerFromContext(ctx) == runner {
			task(ctx)
		} else {
			runner.Post(task)
		}
		return
	}

	entry := &throttleEntry{}
	armed := now
	fire := func(fctx context.Context) {
		t.mu.Lock()
		if cur, ok := t.entries[id]; ok && cur == entry {
			delete(t.entries, id)
		}
		t.lastFire[id] = time.Now()
		t.counts.fires++
		t.opts.metrics.RecordPending(kindThrottle, len(t.entries))
		t.mu.Unlock()
		t.opts.metrics.RecordFire(kindThrottle, time.Since(armed))
		task(fctx)
	}
	entry.handle = core.PostDeferred(runner, remaining, fire)
	t.entries[id] = entry
	t.opts.metrics.RecordTrigger(kindThrottle, core.OutcomeScheduled)
	t.opts.metrics.RecordPending(kindThrottle, len(t.entries))
	t.mu.Unlock()
}

// Cancel cancels and removes the pending fire for id, if any. The last-fire
// timestamp is retained, so the cool-down window keeps gating later triggers.
func (t *Throttler) Cancel(id string) {
	t.mu.Lock()
	if e, ok := t.entries[id]; ok {
		e.handle.Cancel()
		delete(t.entries, id)
		t.counts.cancels++
		t.opts.metrics.RecordCancel(kindThrottle)
		t.opts.metrics.RecordPending(kindThrottle, len(t.entries))
	}
	t.mu.Unlock()
}

// Forget cancels any pending fire for id and clears its last-fire timestamp,
// so the next trigger fires immediately.
func (t *Throttler) Forget(id string) {
	t.mu.Lock()
	if e, ok := t.entries[id]; ok {
		e.handle.Cancel()
		delete(t.entries, id)
		t.counts.cancels++
		t.opts.metrics.RecordCancel(kindThrottle)
		t.opts.metrics.RecordPending(kindThrottle, len(t.entries))
	}
	delete(t.lastFire, id)
	t.mu.Unlock()
}

// CancelAll cancels every pending fire. Last-fire timestamps are retained.
func (t *Throttler) CancelAll() {
	t.mu.Lock()
	t.cancelAllLocked()
	t.mu.Unlock()
}

func (t *Throttler) cancelAllLocked() {
	for id, e := range t.entries {
		e.handle.Cancel()
		delete(t.entries, id)
		t.counts.cancels++
		t.opts.metrics.RecordCancel(kindThrottle)
	}
	t.opts.metrics.RecordPending(kindThrottle, 0)
}

// LastFire returns the time of the last executed action for id, and whether
// one has fired since the identifier was last forgotten.
func (t *Throttler) LastFire(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastFire[id]
	return ts, ok
}

// Pending reports whether a fire is scheduled for id.
func (t *Throttler) Pending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[id]
	return ok
}

// Len returns the number of identifiers with a scheduled fire.
func (t *Throttler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Stats returns a snapshot of the throttler's counters.
func (t *Throttler) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts.snapshot(len(t.entries))
}

// Close cancels every pending fire and drops all further triggers.
func (t *Throttler) Close() {
	t.mu.Lock()
	t.closed = true
	t.cancelAllLocked()
	t.mu.Unlock()
}
