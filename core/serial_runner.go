package core

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrRunnerStopped is returned by WaitIdle when the runner is already stopped.
var ErrRunnerStopped = errors.New("runner is stopped")

// defaultQueueSize buffers posts so senders rarely block on the run loop.
const defaultQueueSize = 128

// RunnerConfig holds optional configuration shared by runner constructors.
type RunnerConfig struct {
	// Logger receives panic reports and drop notices. Defaults to DefaultLogger.
	Logger Logger

	// QueueSize is the task queue buffer size. Defaults to 128.
	QueueSize int
}

func (c *RunnerConfig) normalize() {
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
}

// SerialRunner binds a dedicated goroutine to execute tasks sequentially.
// All tasks submitted to it run on the same goroutine in FIFO order, which
// makes it suitable as the "main" execution context: resources owned by the
// runner need no locking.
type SerialRunner struct {
	name string
	work chan Task

	ctx    context.Context
	cancel context.CancelFunc

	stopped  chan struct{}
	stopOnce sync.Once
	closed   atomic.Bool

	executed atomic.Int64
	dropped  atomic.Int64
	active   atomic.Int32

	logger Logger
}

// NewSerialRunner creates and starts a SerialRunner. The dedicated goroutine
// is spawned immediately.
func NewSerialRunner(name string) *SerialRunner {
	return NewSerialRunnerWithConfig(name, &RunnerConfig{})
}

// NewSerialRunnerWithConfig creates and starts a SerialRunner with the given
// configuration.
func NewSerialRunnerWithConfig(name string, cfg *RunnerConfig) *SerialRunner {
	if cfg == nil {
		cfg = &RunnerConfig{}
	}
	cfg.normalize()

	ctx, cancel := context.WithCancel(context.Background())
	r := &SerialRunner{
		name:    name,
		work:    make(chan Task, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		logger:  cfg.Logger,
	}
	go r.runLoop()
	return r
}

// Name returns the runner's name.
func (r *SerialRunner) Name() string { return r.name }

// Post submits a task for execution. Tasks posted after Stop are dropped.
func (r *SerialRunner) Post(task Task) {
	if r.closed.Load() {
		r.dropped.Add(1)
		r.logger.Debug("task dropped, runner stopped", F("runner", r.name))
		return
	}
	select {
	case <-r.ctx.Done():
		r.dropped.Add(1)
	case r.work <- task:
	}
}

// PostDelayed submits a task for execution after delay. The timer is
// independent of the run loop; when it fires the task is posted normally.
func (r *SerialRunner) PostDelayed(task Task, delay time.Duration) {
	if r.closed.Load() {
		r.dropped.Add(1)
		return
	}
	if delay <= 0 {
		r.Post(task)
		return
	}
	time.AfterFunc(delay, func() { r.Post(task) })
}

// WaitIdle blocks until every task posted before the call has finished, or
// ctx is done.
func (r *SerialRunner) WaitIdle(ctx context.Context) error {
	if r.closed.Load() {
		return ErrRunnerStopped
	}
	idle := NewWaitableEvent()
	r.Post(func(context.Context) { idle.Signal() })
	return idle.WaitContext(ctx)
}

// Stop stops the runner and waits for the in-flight task to complete.
// Idempotent. Queued tasks that have not started are discarded.
func (r *SerialRunner) Stop() {
	r.stopOnce.Do(func() {
		r.closed.Store(true)
		r.cancel()
		<-r.stopped
	})
}

// Closed reports whether the runner has been stopped.
func (r *SerialRunner) Closed() bool { return r.closed.Load() }

// Stats returns a snapshot of the runner's state.
func (r *SerialRunner) Stats() RunnerStats {
	return RunnerStats{
		Name:     r.name,
		Kind:     "serial",
		Workers:  1,
		Pending:  len(r.work),
		Active:   int(r.active.Load()),
		Executed: r.executed.Load(),
		Dropped:  r.dropped.Load(),
		Closed:   r.closed.Load(),
	}
}

func (r *SerialRunner) runLoop() {
	defer close(r.stopped)

	// Tasks observe their own runner through the context.
	runCtx := withRunner(r.ctx, r)

	for {
		select {
		case task := <-r.work:
			r.runTask(runCtx, task)
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *SerialRunner) runTask(ctx context.Context, task Task) {
	r.active.Store(1)
	defer func() {
		r.active.Store(0)
		r.executed.Add(1)
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked",
				F("runner", r.name), F("panic", rec), F("stack", string(debug.Stack())))
		}
	}()
	task(ctx)
}
