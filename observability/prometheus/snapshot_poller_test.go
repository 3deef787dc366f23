package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/quenchkit/go-coalescer/core"
)

type coalescerStub struct {
	stats core.CoalescerStats
}

func (s coalescerStub) Stats() core.CoalescerStats { return s.stats }

type runnerStub struct {
	stats core.RunnerStats
}

func (s runnerStub) Stats() core.RunnerStats { return s.stats }

func TestSnapshotPoller_CollectsCoalescerAndRunnerStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddCoalescer("debounce", coalescerStub{stats: core.CoalescerStats{
		Triggers: 12,
		Fires:    4,
		Pending:  3,
	}})
	poller.AddRunner("main", runnerStub{stats: core.RunnerStats{
		Kind:     "serial",
		Pending:  2,
		Active:   1,
		Executed: 9,
		Closed:   true,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		pending := testutil.ToFloat64(poller.coalescerPending.WithLabelValues("debounce"))
		active := testutil.ToFloat64(poller.runnerActive.WithLabelValues("main", "serial"))
		return pending == 3 && active == 1
	})

	if got := testutil.ToFloat64(poller.coalescerTriggers.WithLabelValues("debounce")); got != 12 {
		t.Fatalf("coalescer triggers gauge = %v, want 12", got)
	}
	if got := testutil.ToFloat64(poller.runnerClosed.WithLabelValues("main", "serial")); got != 1 {
		t.Fatalf("runner closed gauge = %v, want 1", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
