package coalescer

import (
	"context"
	"sync"
	"time"

	"github.com/quenchkit/go-coalescer/core"
)

const kindDebounce = "debounce"

// Debouncer coalesces bursts of triggers on the trailing edge, keyed by
// identifier: repeated triggers reset the pending timer so the action runs
// once, delay after the last trigger of a burst. Triggers spaced at least
// delay apart each fire independently.
//
// At most one scheduled item is live per identifier at any time. An empty
// identifier is treated as one more distinct key, not rejected.
type Debouncer struct {
	mu      sync.Mutex
	entries map[string]*debounceEntry
	counts  counters
	opts    options
	closed  bool
}

// debounceEntry identifies one live scheduled item. The fire callback only
// removes the registry entry it belongs to, so a superseded item that loses
// the cancel race cannot clobber its replacement.
type debounceEntry struct {
	handle *core.Handle
}

// NewDebouncer creates a Debouncer.
func NewDebouncer(opts ...Option) *Debouncer {
	return &Debouncer{
		entries: make(map[string]*debounceEntry),
		opts:    newOptions(opts),
	}
}

// Trigger schedules task to run once, delay after the most recent trigger
// for id. A pending action for the same id is canceled and replaced. A
// non-positive delay fires as soon as possible with no coalescing window.
func (d *Debouncer) Trigger(id string, delay time.Duration, task core.Task) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.opts.logger.Debug("trigger dropped, debouncer closed", core.F("id", id))
		return
	}
	d.counts.triggers++

	if prev, ok := d.entries[id]; ok {
		prev.handle.Cancel()
		delete(d.entries, id)
		d.counts.coalesced++
		d.opts.metrics.RecordTrigger(kindDebounce, core.OutcomeCoalesced)
	}

	if delay <= 0 {
		d.counts.fires++
		d.opts.metrics.RecordTrigger(kindDebounce, core.OutcomeFired)
		runner := d.opts.runner
		d.mu.Unlock()
		d.opts.metrics.RecordFire(kindDebounce, 0)
		if runner != nil {
			runner.Post(task)
		} else {
			task(context.Background())
		}
		return
	}

	entry := &debounceEntry{}
	armed := time.Now()
	fire := func(ctx context.Context) {
		// Drop the registry entry before running so a trigger from within
		// the action starts a fresh cycle.
		d.mu.Lock()
		if cur, ok := d.entries[id]; ok && cur == entry {
			delete(d.entries, id)
		}
		d.counts.fires++
		d.opts.metrics.RecordPending(kindDebounce, len(d.entries))
		d.mu.Unlock()
		d.opts.metrics.RecordFire(kindDebounce, time.Since(armed))
		task(ctx)
	}
	entry.handle = core.PostDeferred(d.opts.runner, delay, fire)
	d.entries[id] = entry
	d.opts.metrics.RecordTrigger(kindDebounce, core.OutcomeScheduled)
	d.opts.metrics.RecordPending(kindDebounce, len(d.entries))
	d.mu.Unlock()
}

// Cancel cancels and removes the pending action for id, if any. Canceling an
// id with no pending action, or canceling twice, is a no-op.
func (d *Debouncer) Cancel(id string) {
	d.mu.Lock()
	if e, ok := d.entries[id]; ok {
		e.handle.Cancel()
		delete(d.entries, id)
		d.counts.cancels++
		d.opts.metrics.RecordCancel(kindDebounce)
		d.opts.metrics.RecordPending(kindDebounce, len(d.entries))
	}
	d.mu.Unlock()
}

// CancelAll cancels every pending action.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	d.cancelAllLocked()
	d.mu.Unlock()
}

func (d *Debouncer) cancelAllLocked() {
	for id, e := range d.entries {
		e.handle.Cancel()
		delete(d.entries, id)
		d.counts.cancels++
		d.opts.metrics.RecordCancel(kindDebounce)
	}
	d.opts.metrics.RecordPending(kindDebounce, 0)
}

// Pending reports whether an action is pending for id.
func (d *Debouncer) Pending(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.entries[id]
	return ok
}

// Len returns the number of identifiers with a pending action.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Stats returns a snapshot of the debouncer's counters.
func (d *Debouncer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts.snapshot(len(d.entries))
}

// Close cancels every pending action and drops all further triggers.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	d.cancelAllLocked()
	d.mu.Unlock()
}
