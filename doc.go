// Package coalescer collapses bursts of repeated trigger events into single
// delayed or rate-limited actions, keyed by identifier.
//
// Three coalescing policies are provided:
//
// Debouncer (trailing edge): repeated triggers reset a pending timer so the
// action runs once, delay after the last trigger of a burst.
//
//	d := coalescer.NewDebouncer()
//	d.Trigger("search", 300*time.Millisecond, func(ctx context.Context) {
//		runQuery()
//	})
//
// LeadingDebouncer: the first trigger runs immediately, then a cool-down
// window swallows further triggers until it closes (or is forcibly restarted).
//
// Throttler: at most one execution per delay window per identifier, always
// carrying the most recent trigger's payload.
//
// # Execution contexts
//
// Actions fire on a core.Runner. core.SerialRunner is a dedicated-goroutine
// FIFO context ("main"); core.PoolRunner is a shared background worker pool.
// A process-wide default pair can be set up once at startup:
//
//	coalescer.InitDefaultContexts(4)
//	defer coalescer.ShutdownDefaultContexts()
//
// When no runner is configured, actions run on the timer goroutine (or inline
// on the caller when no delay applies).
//
// # Primitives
//
// The coalescers are built on two small primitives that are exported for
// direct use: core.PostDeferred schedules a cancelable one-shot call on a
// runner, and core.WaitableEvent is a counting wait primitive for
// cross-context synchronous calls (see core.RunSync).
//
// # Concurrency
//
// All coalescer methods are safe for concurrent use. Operations on the same
// identifier are linearized by one mutex per coalescer instance; different
// identifiers proceed concurrently once dispatched. Cancellation is final:
// after Cancel returns, either the action had already run or it never will.
package coalescer
