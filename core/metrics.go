package core

import "time"

// Trigger outcome labels reported to Metrics.RecordTrigger.
const (
	// OutcomeFired: the trigger's action ran immediately.
	OutcomeFired = "fired"

	// OutcomeScheduled: the trigger's action was deferred to a later fire.
	OutcomeScheduled = "scheduled"

	// OutcomeCoalesced: the trigger superseded a pending action.
	OutcomeCoalesced = "coalesced"

	// OutcomeSuppressed: the trigger was swallowed by an open cool-down window.
	OutcomeSuppressed = "suppressed"
)

// Metrics defines the interface for collecting coalescer metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods must be safe for concurrent use and should be non-blocking and fast:
// they are invoked inside the coalescers' critical sections.
type Metrics interface {
	// RecordTrigger records one trigger call and its outcome.
	//
	// Parameters:
	// - coalescer: The coalescer kind ("debounce", "leading", "throttle")
	// - outcome: One of the Outcome* constants
	RecordTrigger(coalescer, outcome string)

	// RecordFire records one executed action and how long it was delayed
	// between its final trigger and execution.
	RecordFire(coalescer string, waited time.Duration)

	// RecordCancel records one explicit cancellation of a pending action.
	RecordCancel(coalescer string)

	// RecordPending records the current number of pending scheduled items.
	RecordPending(coalescer string, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTrigger(coalescer, outcome string)           {}
func (m *NilMetrics) RecordFire(coalescer string, waited time.Duration) {}
func (m *NilMetrics) RecordCancel(coalescer string)                     {}
func (m *NilMetrics) RecordPending(coalescer string, depth int)         {}
