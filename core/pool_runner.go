package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// PoolRunner executes tasks on a shared pool of worker goroutines. Tasks may
// run concurrently and in any order relative to each other; it is the
// background execution context for work with no affinity requirements.
type PoolRunner struct {
	name    string
	workers int
	work    chan Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once
	closed   atomic.Bool

	executed atomic.Int64
	dropped  atomic.Int64
	active   atomic.Int32

	logger Logger
}

// NewPoolRunner creates and starts a PoolRunner with the given number of
// workers (minimum 1).
func NewPoolRunner(name string, workers int) *PoolRunner {
	return NewPoolRunnerWithConfig(name, workers, &RunnerConfig{})
}

// NewPoolRunnerWithConfig creates and starts a PoolRunner with the given
// configuration.
func NewPoolRunnerWithConfig(name string, workers int, cfg *RunnerConfig) *PoolRunner {
	if workers < 1 {
		workers = 1
	}
	if cfg == nil {
		cfg = &RunnerConfig{}
	}
	cfg.normalize()

	ctx, cancel := context.WithCancel(context.Background())
	p := &PoolRunner{
		name:    name,
		workers: workers,
		work:    make(chan Task, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		logger:  cfg.Logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	return p
}

// Name returns the pool's name.
func (p *PoolRunner) Name() string { return p.name }

// WorkerCount returns the number of workers.
func (p *PoolRunner) WorkerCount() int { return p.workers }

// Post submits a task for execution on any worker. Tasks posted after Stop
// are dropped.
func (p *PoolRunner) Post(task Task) {
	if p.closed.Load() {
		p.dropped.Add(1)
		p.logger.Debug("task dropped, pool stopped", F("pool", p.name))
		return
	}
	select {
	case <-p.ctx.Done():
		p.dropped.Add(1)
	case p.work <- task:
	}
}

// PostDelayed submits a task for execution after delay.
func (p *PoolRunner) PostDelayed(task Task, delay time.Duration) {
	if p.closed.Load() {
		p.dropped.Add(1)
		return
	}
	if delay <= 0 {
		p.Post(task)
		return
	}
	time.AfterFunc(delay, func() { p.Post(task) })
}

// Stop stops the pool. Queued tasks that have not started are discarded;
// in-flight tasks complete. Idempotent.
func (p *PoolRunner) Stop() {
	p.stopOnce.Do(func() {
		p.closed.Store(true)
		p.cancel()
		p.wg.Wait()
	})
}

// StopGraceful stops accepting new tasks and waits for the queue to drain
// and in-flight tasks to complete. Returns an error if timeout is exceeded
// first; remaining tasks are then discarded.
func (p *PoolRunner) StopGraceful(timeout time.Duration) error {
	p.closed.Store(true)

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			p.Stop()
			return fmt.Errorf("pool %q: graceful stop timed out after %v", p.name, timeout)
		case <-ticker.C:
			if len(p.work) == 0 && p.active.Load() == 0 {
				p.Stop()
				return nil
			}
		}
	}
}

// Closed reports whether the pool has been stopped (or is stopping).
func (p *PoolRunner) Closed() bool { return p.closed.Load() }

// Stats returns a snapshot of the pool's state.
func (p *PoolRunner) Stats() RunnerStats {
	return RunnerStats{
		Name:     p.name,
		Kind:     "pool",
		Workers:  p.workers,
		Pending:  len(p.work),
		Active:   int(p.active.Load()),
		Executed: p.executed.Load(),
		Dropped:  p.dropped.Load(),
		Closed:   p.closed.Load(),
	}
}

func (p *PoolRunner) workerLoop(id int) {
	defer p.wg.Done()

	runCtx := withRunner(p.ctx, p)

	for {
		select {
		case task := <-p.work:
			p.runTask(runCtx, id, task)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *PoolRunner) runTask(ctx context.Context, workerID int, task Task) {
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		p.executed.Add(1)
		if rec := recover(); rec != nil {
			p.logger.Error("task panicked",
				F("pool", p.name), F("worker", workerID),
				F("panic", rec), F("stack", string(debug.Stack())))
		}
	}()
	task(ctx)
}
