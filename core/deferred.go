package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrWaitTimeout is returned by RunSync when the posted task does not
// complete before the timeout elapses.
var ErrWaitTimeout = errors.New("deferred call did not complete before timeout")

// Handle states. A handle starts scheduled and transitions exactly once to
// either fired or canceled; the transition is decided by a CAS so that a
// cancel racing with the timer resolves deterministically.
const (
	handleScheduled int32 = iota
	handleFired
	handleCanceled
)

// Handle controls one deferred call created by PostDeferred.
type Handle struct {
	state atomic.Int32
	timer *time.Timer // nil when the call was dispatched without a delay
	done  chan struct{}
}

// PostDeferred schedules task to run once after delay on runner.
//
// When runner is nil the task runs on the timer goroutine (or inline on the
// caller when delay <= 0). A non-positive delay dispatches the task as soon
// as possible.
//
// The returned Handle cancels the call or waits for its completion. Exactly
// one of the following holds for every handle: the task ran once, or it will
// never run.
func PostDeferred(runner Runner, delay time.Duration, task Task) *Handle {
	h := &Handle{done: make(chan struct{})}

	fire := func(ctx context.Context) {
		if !h.state.CompareAndSwap(handleScheduled, handleFired) {
			// Lost the race against Cancel; the timer callback becomes a no-op.
			return
		}
		defer close(h.done)
		task(ctx)
	}

	dispatch := func() {
		if runner != nil {
			runner.Post(fire)
			return
		}
		fire(context.Background())
	}

	if delay <= 0 {
		dispatch()
		return h
	}
	h.timer = time.AfterFunc(delay, dispatch)
	return h
}

// Cancel prevents the deferred call from running. It returns true if the call
// was still pending and is now guaranteed to never run, false if the call has
// already fired (or was already canceled). Canceling a fired handle is a safe
// no-op; it never undoes an executed task.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(handleScheduled, handleCanceled) {
		return false
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	close(h.done)
	return true
}

// Fired reports whether the task has started executing (or finished).
func (h *Handle) Fired() bool { return h.state.Load() == handleFired }

// Canceled reports whether the call was canceled before it fired.
func (h *Handle) Canceled() bool { return h.state.Load() == handleCanceled }

// Done returns a channel that is closed once the task has finished executing
// or the call has been canceled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task has finished executing or the call was canceled,
// or until ctx is done. Do not call Wait from the runner the task is
// scheduled on.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunSync posts task to runner and blocks the caller until the task has
// finished executing there, using a WaitableEvent for the cross-context
// rendezvous. A non-positive timeout waits indefinitely.
//
// Calling RunSync from the target runner itself deadlocks (the runner cannot
// execute the task while the caller occupies it).
func RunSync(runner Runner, task Task, timeout time.Duration) error {
	finished := NewWaitableEvent()
	PostDeferred(runner, 0, func(ctx context.Context) {
		task(ctx)
		finished.Signal()
	})
	if timeout <= 0 {
		finished.Wait()
		return nil
	}
	if !finished.WaitTimeout(timeout) {
		return ErrWaitTimeout
	}
	return nil
}
