package coalescer

import (
	"context"
	"sync"
	"time"

	"github.com/quenchkit/go-coalescer/core"
)

const kindLeading = "leading"

// LeadingDebouncer coalesces bursts of triggers on the leading edge, keyed by
// identifier: the first trigger runs its action immediately, then a cool-down
// window of delay swallows further triggers for the same identifier. The next
// trigger after the window closes fires immediately again.
//
// The cool-down gate is installed before the action executes, so a concurrent
// trigger arriving while the action runs is suppressed, never double-fired.
type LeadingDebouncer struct {
	mu      sync.Mutex
	entries map[string]*leadingEntry
	counts  counters
	opts    options
	closed  bool
}

// leadingEntry marks an open cool-down window. Its deferred handle carries no
// user action; its only job is gating subsequent triggers until it expires.
type leadingEntry struct {
	handle *core.Handle
}

// NewLeadingDebouncer creates a LeadingDebouncer.
func NewLeadingDebouncer(opts ...Option) *LeadingDebouncer {
	return &LeadingDebouncer{
		entries: make(map[string]*leadingEntry),
		opts:    newOptions(opts),
	}
}

// Trigger runs task synchronously on the caller if no cool-down window is
// open for id, then opens a window of delay. While a window is open, triggers
// with restart=false are fully suppressed; restart=true cancels the open
// window and proceeds as if none existed, restarting the cool-down from now.
//
// It reports whether task ran. A non-positive delay fires without opening a
// window. ctx is passed through to task; nil means context.Background.
func (l *LeadingDebouncer) Trigger(
	ctx context.Context, id string, delay time.Duration, restart bool, task core.Task,
) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.counts.triggers++

	if prev, ok := l.entries[id]; ok {
		if !restart {
			l.counts.suppressed++
			l.opts.metrics.RecordTrigger(kindLeading, core.OutcomeSuppressed)
			l.mu.Unlock()
			return false
		}
		prev.handle.Cancel()
		delete(l.entries, id)
		l.counts.coalesced++
	}

	if delay > 0 {
		entry := &leadingEntry{}
		entry.handle = core.PostDeferred(nil, delay, func(context.Context) {
			l.mu.Lock()
			if cur, ok := l.entries[id]; ok && cur == entry {
				delete(l.entries, id)
				l.opts.metrics.RecordPending(kindLeading, len(l.entries))
			}
			l.mu.Unlock()
		})
		l.entries[id] = entry
	}
	l.counts.fires++
	l.opts.metrics.RecordTrigger(kindLeading, core.OutcomeFired)
	l.opts.metrics.RecordPending(kindLeading, len(l.entries))
	l.mu.Unlock()

	l.opts.metrics.RecordFire(kindLeading, 0)
	task(ctx)
	return true
}

// Cancel closes the cool-down window for id early, if one is open. The next
// trigger for id then fires immediately. No-op when no window is open.
func (l *LeadingDebouncer) Cancel(id string) {
	l.mu.Lock()
	if e, ok := l.entries[id]; ok {
		e.handle.Cancel()
		delete(l.entries, id)
		l.counts.cancels++
		l.opts.metrics.RecordCancel(kindLeading)
		l.opts.metrics.RecordPending(kindLeading, len(l.entries))
	}
	l.mu.Unlock()
}

// CancelAll closes every open cool-down window.
func (l *LeadingDebouncer) CancelAll() {
	l.mu.Lock()
	l.cancelAllLocked()
	l.mu.Unlock()
}

func (l *LeadingDebouncer) cancelAllLocked() {
	for id, e := range l.entries {
		e.handle.Cancel()
		delete(l.entries, id)
		l.counts.cancels++
		l.opts.metrics.RecordCancel(kindLeading)
	}
	l.opts.metrics.RecordPending(kindLeading, 0)
}

// Pending reports whether a cool-down window is open for id.
func (l *LeadingDebouncer) Pending(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[id]
	return ok
}

// Len returns the number of identifiers with an open cool-down window.
func (l *LeadingDebouncer) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats returns a snapshot of the coalescer's counters.
func (l *LeadingDebouncer) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts.snapshot(len(l.entries))
}

// Close closes every window and drops all further triggers.
func (l *LeadingDebouncer) Close() {
	l.mu.Lock()
	l.closed = true
	l.cancelAllLocked()
	l.mu.Unlock()
}
