package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPoolRunner(name string, workers int) *PoolRunner {
	return NewPoolRunnerWithConfig(name, workers, &RunnerConfig{Logger: NewNoOpLogger()})
}

// TestPoolRunner_ExecutesAllTasks tests basic pool execution
// Given: a pool with 4 workers and 20 posted tasks
// When: all tasks complete
// Then: the counter equals 20
func TestPoolRunner_ExecutesAllTasks(t *testing.T) {
	pool := newTestPoolRunner("exec", 4)
	defer pool.Stop()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		pool.Post(func(ctx context.Context) {
			defer wg.Done()
			counter.Add(1)
		})
	}
	wg.Wait()

	if got := counter.Load(); got != 20 {
		t.Errorf("task count: got = %d, want 20", got)
	}
}

// TestPoolRunner_PanicRecovery tests worker survival
// Given: a panicking task and a normal task
// When: both are posted
// Then: the worker survives and the normal task executes
func TestPoolRunner_PanicRecovery(t *testing.T) {
	pool := newTestPoolRunner("panic", 1)
	defer pool.Stop()

	pool.Post(func(ctx context.Context) {
		panic("boom")
	})

	survived := make(chan struct{})
	pool.Post(func(ctx context.Context) {
		close(survived)
	})

	select {
	case <-survived:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not survive the panic")
	}
}

// TestPoolRunner_StopGraceful tests graceful drain
// Given: a pool with queued short tasks
// When: StopGraceful is called with a generous timeout
// Then: all tasks complete and no error is returned
func TestPoolRunner_StopGraceful(t *testing.T) {
	pool := newTestPoolRunner("graceful", 2)

	var counter atomic.Int32
	for i := 0; i < 10; i++ {
		pool.Post(func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			counter.Add(1)
		})
	}

	if err := pool.StopGraceful(2 * time.Second); err != nil {
		t.Fatalf("StopGraceful failed: %v", err)
	}
	if got := counter.Load(); got != 10 {
		t.Errorf("task count: got = %d, want 10", got)
	}
}

// TestPoolRunner_StopGracefulTimeout tests drain timeout
// Given: a pool occupied by a long-running task
// When: StopGraceful is called with a short timeout
// Then: an error is returned
func TestPoolRunner_StopGracefulTimeout(t *testing.T) {
	pool := newTestPoolRunner("graceful-timeout", 1)

	pool.Post(func(ctx context.Context) {
		time.Sleep(time.Second)
	})
	time.Sleep(10 * time.Millisecond) // let the worker pick it up

	if err := pool.StopGraceful(50 * time.Millisecond); err == nil {
		t.Error("StopGraceful error = nil, want timeout error")
	}
}

// TestPoolRunner_PostAfterStop tests post-stop drop accounting
// Given: a stopped pool
// When: a task is posted
// Then: the task is dropped and counted in Stats
func TestPoolRunner_PostAfterStop(t *testing.T) {
	pool := newTestPoolRunner("stopped", 2)
	pool.Stop()

	pool.Post(func(ctx context.Context) {
		t.Error("task ran on a stopped pool")
	})
	time.Sleep(30 * time.Millisecond)

	stats := pool.Stats()
	if !stats.Closed {
		t.Error("Stats().Closed = false, want true")
	}
	if stats.Dropped == 0 {
		t.Error("Stats().Dropped = 0, want > 0")
	}
}

// TestPoolRunner_Stats tests the snapshot fields
// Given: a pool that has executed tasks
// When: Stats is read
// Then: kind, workers and executed counts are reported
func TestPoolRunner_Stats(t *testing.T) {
	pool := newTestPoolRunner("stats", 3)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		pool.Post(func(ctx context.Context) { wg.Done() })
	}
	wg.Wait()
	time.Sleep(20 * time.Millisecond) // executed counter increments after the task returns

	stats := pool.Stats()
	if stats.Kind != "pool" {
		t.Errorf("Kind = %q, want \"pool\"", stats.Kind)
	}
	if stats.Workers != 3 {
		t.Errorf("Workers = %d, want 3", stats.Workers)
	}
	if stats.Executed < 5 {
		t.Errorf("Executed = %d, want >= 5", stats.Executed)
	}
}
