package coalescer

import "github.com/quenchkit/go-coalescer/core"

// Option configures a coalescer instance.
type Option func(*options)

type options struct {
	logger  core.Logger
	metrics core.Metrics
	runner  core.Runner
}

func newOptions(opts []Option) options {
	o := options{
		logger:  core.NewNoOpLogger(),
		metrics: &core.NilMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for lifecycle events. Defaults to a no-op
// logger.
func WithLogger(l core.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics collector. Defaults to core.NilMetrics.
func WithMetrics(m core.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRunner sets the default execution context actions fire on. When unset,
// actions run on the timer goroutine (or inline when no delay applies).
func WithRunner(r core.Runner) Option {
	return func(o *options) { o.runner = r }
}

// counters are mutated under each coalescer's registry mutex.
type counters struct {
	triggers   int64
	fires      int64
	coalesced  int64
	suppressed int64
	cancels    int64
}

func (c counters) snapshot(pending int) Stats {
	return Stats{
		Triggers:   c.triggers,
		Fires:      c.fires,
		Coalesced:  c.coalesced,
		Suppressed: c.suppressed,
		Cancels:    c.cancels,
		Pending:    pending,
	}
}
