package core

// RunnerStats is a point-in-time snapshot of a runner's state, suitable for
// periodic export (see observability/prometheus.SnapshotPoller).
type RunnerStats struct {
	Name     string
	Kind     string // "serial" or "pool"
	Workers  int    // 1 for serial runners
	Pending  int    // tasks queued but not yet started
	Active   int    // tasks currently executing
	Executed int64
	Dropped  int64 // tasks dropped because the runner was stopped
	Closed   bool
}

// CoalescerStats is a point-in-time snapshot of one coalescer's counters.
type CoalescerStats struct {
	Triggers   int64
	Fires      int64
	Coalesced  int64 // triggers that superseded a pending action
	Suppressed int64 // triggers swallowed by a cool-down window
	Cancels    int64
	Pending    int // live scheduled items in the registry
}
