package core

import (
	"context"
	"time"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// =============================================================================
// Runner: Execution context interface
// =============================================================================

// Runner is an execution context that tasks can be posted to.
//
// Two implementations are provided:
//   - SerialRunner: a dedicated goroutine executing tasks sequentially
//     (the "main"/UI context)
//   - PoolRunner: a shared pool of worker goroutines (the background context)
//
// Posting never blocks on task execution; tasks posted after the runner has
// been stopped are dropped.
type Runner interface {
	// Post submits a task for execution as soon as possible.
	Post(task Task)

	// PostDelayed submits a task for execution after delay has elapsed.
	// There is no way to cancel a task posted this way; use PostDeferred
	// when a cancellation handle is needed.
	PostDelayed(task Task, delay time.Duration)

	// Name returns the runner's name, used in logs and metrics labels.
	Name() string
}

// =============================================================================
// Context Helper
// =============================================================================

type runnerKeyType struct{}

var runnerKey runnerKeyType

// RunnerFromContext returns the Runner that is executing the current task,
// or nil when the caller is not running on a Runner.
//
// Coalescers use this to make the inline-vs-dispatch decision explicit: when
// the requested target runner is the one the caller is already executing on,
// a due action may run inline instead of being posted.
func RunnerFromContext(ctx context.Context) Runner {
	if v := ctx.Value(runnerKey); v != nil {
		return v.(Runner)
	}
	return nil
}

func withRunner(ctx context.Context, r Runner) context.Context {
	return context.WithValue(ctx, runnerKey, r)
}
