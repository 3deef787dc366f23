package coalescer

import "github.com/quenchkit/go-coalescer/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the coalescer package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// Runner is an execution context tasks can be posted to
type Runner = core.Runner

// Handle controls one deferred call
type Handle = core.Handle

// WaitableEvent is a counting wait primitive
type WaitableEvent = core.WaitableEvent

// SerialRunner executes tasks sequentially on a dedicated goroutine
type SerialRunner = core.SerialRunner

// PoolRunner executes tasks on a shared pool of worker goroutines
type PoolRunner = core.PoolRunner

// Logger is the structured logging interface
type Logger = core.Logger

// Field is a key-value pair for structured logging
type Field = core.Field

// Metrics is the metrics collection interface
type Metrics = core.Metrics

// Stats is a point-in-time snapshot of one coalescer's counters
type Stats = core.CoalescerStats

// RunnerStats is a point-in-time snapshot of a runner's state
type RunnerStats = core.RunnerStats

var (
	// NewWaitableEvent creates a WaitableEvent with no units available.
	NewWaitableEvent = core.NewWaitableEvent

	// PostDeferred schedules a cancelable one-shot call on a runner.
	PostDeferred = core.PostDeferred

	// RunSync posts a task and blocks until it completed on its runner.
	RunSync = core.RunSync

	// RunnerFromContext returns the Runner executing the current task.
	RunnerFromContext = core.RunnerFromContext

	// NewSerialRunner creates and starts a dedicated-goroutine runner.
	NewSerialRunner = core.NewSerialRunner

	// NewPoolRunner creates and starts a worker-pool runner.
	NewPoolRunner = core.NewPoolRunner

	// F creates a logging Field.
	F = core.F
)
