package core

import (
	"context"
	"sync"
	"time"
)

// WaitableEvent is a counting wait primitive. Each Signal deposits one unit;
// each Wait consumes one, blocking until a unit is available. Signaling with
// no waiter is not an error: the unit is retained and satisfies a later Wait.
//
// Callers must never Wait on the same serial runner that the signaling work
// is scheduled to run on; doing so deadlocks. This is a caller contract and
// is not detected at runtime.
type WaitableEvent struct {
	mu      sync.Mutex
	units   int
	waiters int
	wake    chan struct{}
}

// NewWaitableEvent creates a WaitableEvent with no units available.
func NewWaitableEvent() *WaitableEvent {
	return &WaitableEvent{wake: make(chan struct{})}
}

// Signal deposits one unit and wakes blocked waiters so one of them can
// consume it. It reports whether at least one waiter was blocked at the time
// of the call (and will therefore be released by this unit).
func (e *WaitableEvent) Signal() bool {
	e.mu.Lock()
	e.units++
	released := e.waiters > 0
	// Broadcast; exactly one woken waiter wins the unit, the rest go back
	// to sleep on the replacement channel.
	close(e.wake)
	e.wake = make(chan struct{})
	e.mu.Unlock()
	return released
}

// Wait blocks until a unit is available, then consumes it.
func (e *WaitableEvent) Wait() {
	e.mu.Lock()
	for e.units == 0 {
		e.waiters++
		wake := e.wake
		e.mu.Unlock()
		<-wake
		e.mu.Lock()
		e.waiters--
	}
	e.units--
	e.mu.Unlock()
}

// WaitTimeout blocks until a unit is available or timeout elapses. It returns
// true if a unit was consumed, false if the timeout expired first. A
// non-positive timeout polls: it consumes an already-available unit without
// blocking.
func (e *WaitableEvent) WaitTimeout(timeout time.Duration) bool {
	e.mu.Lock()
	if e.units > 0 {
		e.units--
		e.mu.Unlock()
		return true
	}
	if timeout <= 0 {
		e.mu.Unlock()
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for e.units == 0 {
		e.waiters++
		wake := e.wake
		e.mu.Unlock()
		select {
		case <-wake:
			e.mu.Lock()
			e.waiters--
		case <-timer.C:
			e.mu.Lock()
			e.waiters--
			// A signal may have slipped in between the timer firing and
			// reacquiring the lock.
			if e.units > 0 {
				e.units--
				e.mu.Unlock()
				return true
			}
			e.mu.Unlock()
			return false
		}
	}
	e.units--
	e.mu.Unlock()
	return true
}

// WaitContext blocks until a unit is available or ctx is done. It returns nil
// if a unit was consumed, or ctx.Err() otherwise.
func (e *WaitableEvent) WaitContext(ctx context.Context) error {
	e.mu.Lock()
	for e.units == 0 {
		e.waiters++
		wake := e.wake
		e.mu.Unlock()
		select {
		case <-wake:
			e.mu.Lock()
			e.waiters--
		case <-ctx.Done():
			e.mu.Lock()
			e.waiters--
			if e.units > 0 {
				e.units--
				e.mu.Unlock()
				return nil
			}
			e.mu.Unlock()
			return ctx.Err()
		}
	}
	e.units--
	e.mu.Unlock()
	return nil
}
