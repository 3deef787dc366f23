package coalescer_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coalescer "github.com/quenchkit/go-coalescer"
)

func TestEventualExecutesImmediatelyWhenOpen(t *testing.T) {
	th := coalescer.NewEventualThrottler(100 * time.Millisecond)

	var calls atomic.Int32
	err := th.Execute(context.Background(), "k", func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestEventualTrailingCall(t *testing.T) {
	const window = 100 * time.Millisecond
	th := coalescer.NewEventualThrottler(window)

	var calls atomic.Int32
	cb := func() error {
		calls.Add(1)
		return nil
	}

	require.NoError(t, th.Execute(context.Background(), "k", cb))

	// Second call blocks for the window; third returns immediately because a
	// trailing call is already pending.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, th.Execute(context.Background(), "k", cb))
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, th.Execute(context.Background(), "k", cb))
	require.Equal(t, int32(1), calls.Load())

	wg.Wait()
	require.Equal(t, int32(2), calls.Load(), "exactly one trailing call per window")
}

func TestEventualExecuteOrSchedule(t *testing.T) {
	const window = 100 * time.Millisecond
	th := coalescer.NewEventualThrottler(window)

	var calls atomic.Int32
	cb := func() { calls.Add(1) }

	th.ExecuteOrSchedule("k", cb) // runs now
	th.ExecuteOrSchedule("k", cb) // scheduled for the next window
	th.ExecuteOrSchedule("k", cb) // dropped, trailing call already pending

	require.Equal(t, int32(1), calls.Load())

	time.Sleep(2 * window)
	require.Equal(t, int32(2), calls.Load())
}

func TestEventualIndependentIdentifiers(t *testing.T) {
	th := coalescer.NewEventualThrottler(200 * time.Millisecond)

	var calls atomic.Int32
	cb := func() { calls.Add(1) }

	th.ExecuteOrSchedule("a", cb)
	th.ExecuteOrSchedule("b", cb)

	require.Equal(t, int32(2), calls.Load(), "identifiers must not share a window")
}

func TestEventualExecuteContextCanceled(t *testing.T) {
	th := coalescer.NewEventualThrottler(time.Second)

	require.NoError(t, th.Execute(context.Background(), "k", func() error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	err := th.Execute(ctx, "k", func() error {
		ran.Store(true)
		return nil
	})

	require.Error(t, err)
	require.False(t, ran.Load())
}

func TestEventualForget(t *testing.T) {
	th := coalescer.NewEventualThrottler(time.Second)

	var calls atomic.Int32
	cb := func() { calls.Add(1) }

	th.ExecuteOrSchedule("k", cb)
	th.Forget("k")
	th.ExecuteOrSchedule("k", cb)

	require.Equal(t, int32(2), calls.Load(), "a forgotten identifier starts with an open window")
}
