package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestWaitableEvent_RoundTrip tests the basic wait/signal rendezvous
// Given: a goroutine blocked in Wait
// When: Signal is called
// Then: the waiter is released and Signal reports a release
func TestWaitableEvent_RoundTrip(t *testing.T) {
	// Arrange
	event := NewWaitableEvent()
	released := make(chan struct{})

	go func() {
		event.Wait()
		close(released)
	}()

	// Give the waiter time to block
	time.Sleep(20 * time.Millisecond)

	// Act
	got := event.Signal()

	// Assert
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released within 1s")
	}
	if !got {
		t.Error("Signal() = false, want true (a waiter was blocked)")
	}
}

// TestWaitableEvent_SignalWithNoWaiters tests counting semantics
// Given: an event with no waiters
// When: Signal is called and then WaitTimeout
// Then: Signal reports no release but the unit satisfies the later wait
func TestWaitableEvent_SignalWithNoWaiters(t *testing.T) {
	event := NewWaitableEvent()

	if event.Signal() {
		t.Error("Signal() = true, want false (no waiter was blocked)")
	}

	if !event.WaitTimeout(50 * time.Millisecond) {
		t.Error("WaitTimeout() = false, want true (a unit was retained)")
	}
}

// TestWaitableEvent_WaitTimeoutExpires tests timeout behavior
// Given: an event that is never signaled
// When: WaitTimeout is called with a short timeout
// Then: it returns false after roughly the timeout
func TestWaitableEvent_WaitTimeoutExpires(t *testing.T) {
	event := NewWaitableEvent()

	start := time.Now()
	got := event.WaitTimeout(50 * time.Millisecond)
	elapsed := time.Since(start)

	if got {
		t.Error("WaitTimeout() = true, want false")
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, want >= 50ms", elapsed)
	}
}

// TestWaitableEvent_WaitTimeoutSignaled tests a signal arriving in time
// Given: a waiter with a generous timeout
// When: Signal arrives before expiry
// Then: WaitTimeout returns true
func TestWaitableEvent_WaitTimeoutSignaled(t *testing.T) {
	event := NewWaitableEvent()

	go func() {
		time.Sleep(20 * time.Millisecond)
		event.Signal()
	}()

	if !event.WaitTimeout(2 * time.Second) {
		t.Error("WaitTimeout() = false, want true")
	}
}

// TestWaitableEvent_SignalReleasesExactlyOne tests single-release semantics
// Given: two goroutines blocked in Wait
// When: Signal is called once, then once more
// Then: exactly one waiter is released per signal
func TestWaitableEvent_SignalReleasesExactlyOne(t *testing.T) {
	// Arrange - two blocked waiters
	event := NewWaitableEvent()
	var releasedCount atomic.Int32

	for i := 0; i < 2; i++ {
		go func() {
			event.Wait()
			releasedCount.Add(1)
		}()
	}
	time.Sleep(20 * time.Millisecond)

	// Act - first signal
	event.Signal()
	time.Sleep(50 * time.Millisecond)

	// Assert - only one waiter got through
	if got := releasedCount.Load(); got != 1 {
		t.Fatalf("released after one signal: got = %d, want 1", got)
	}

	// Act - second signal releases the remaining waiter
	event.Signal()
	time.Sleep(50 * time.Millisecond)

	if got := releasedCount.Load(); got != 2 {
		t.Fatalf("released after two signals: got = %d, want 2", got)
	}
}

// TestWaitableEvent_WaitContextCanceled tests context cancellation
// Given: an event that is never signaled
// When: WaitContext is called with a canceled context
// Then: it returns the context error
func TestWaitableEvent_WaitContextCanceled(t *testing.T) {
	event := NewWaitableEvent()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := event.WaitContext(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("WaitContext() = %v, want context.DeadlineExceeded", err)
	}
}
