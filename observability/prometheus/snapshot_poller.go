package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/quenchkit/go-coalescer/core"
)

// CoalescerSnapshotProvider provides current coalescer stats snapshots.
type CoalescerSnapshotProvider interface {
	Stats() core.CoalescerStats
}

// RunnerSnapshotProvider provides current runner stats snapshots.
type RunnerSnapshotProvider interface {
	Stats() core.RunnerStats
}

// SnapshotPoller periodically exports coalescer/runner Stats() snapshots
// into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	coalescersMu sync.RWMutex
	coalescers   map[string]CoalescerSnapshotProvider

	runnersMu sync.RWMutex
	runners   map[string]RunnerSnapshotProvider

	coalescerPending  *prom.GaugeVec
	coalescerTriggers *prom.GaugeVec
	coalescerFires    *prom.GaugeVec

	runnerPending  *prom.GaugeVec
	runnerActive   *prom.GaugeVec
	runnerExecuted *prom.GaugeVec
	runnerClosed   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	coalescerPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "coalescer",
		Name:      "registry_pending",
		Help:      "Live scheduled items per coalescer.",
	}, []string{"coalescer"})
	coalescerTriggers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "coalescer",
		Name:      "trigger_count",
		Help:      "Trigger count snapshot per coalescer.",
	}, []string{"coalescer"})
	coalescerFires := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "coalescer",
		Name:      "fire_count",
		Help:      "Fire count snapshot per coalescer.",
	}, []string{"coalescer"})

	runnerPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "coalescer",
		Name:      "runner_pending",
		Help:      "Queued tasks per runner.",
	}, []string{"runner", "kind"})
	runnerActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "coalescer",
		Name:      "runner_active",
		Help:      "Executing tasks per runner.",
	}, []string{"runner", "kind"})
	runnerExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "coalescer",
		Name:      "runner_executed_total",
		Help:      "Runner executed task count snapshot.",
	}, []string{"runner", "kind"})
	runnerClosed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "coalescer",
		Name:      "runner_closed",
		Help:      "Runner closed state (1=closed, 0=open).",
	}, []string{"runner", "kind"})

	var err error
	if coalescerPending, err = registerCollector(reg, coalescerPending); err != nil {
		return nil, err
	}
	if coalescerTriggers, err = registerCollector(reg, coalescerTriggers); err != nil {
		return nil, err
	}
	if coalescerFires, err = registerCollector(reg, coalescerFires); err != nil {
		return nil, err
	}
	if runnerPending, err = registerCollector(reg, runnerPending); err != nil {
		return nil, err
	}
	if runnerActive, err = registerCollector(reg, runnerActive); err != nil {
		return nil, err
	}
	if runnerExecuted, err = registerCollector(reg, runnerExecuted); err != nil {
		return nil, err
	}
	if runnerClosed, err = registerCollector(reg, runnerClosed); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:          interval,
		coalescers:        make(map[string]CoalescerSnapshotProvider),
		runners:           make(map[string]RunnerSnapshotProvider),
		coalescerPending:  coalescerPending,
		coalescerTriggers: coalescerTriggers,
		coalescerFires:    coalescerFires,
		runnerPending:     runnerPending,
		runnerActive:      runnerActive,
		runnerExecuted:    runnerExecuted,
		runnerClosed:      runnerClosed,
	}, nil
}

// AddCoalescer adds or replaces a coalescer snapshot provider by name.
func (p *SnapshotPoller) AddCoalescer(name string, provider CoalescerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "coalescer")
	p.coalescersMu.Lock()
	p.coalescers[name] = provider
	p.coalescersMu.Unlock()
}

// AddRunner adds or replaces a runner snapshot provider by name.
func (p *SnapshotPoller) AddRunner(name string, provider RunnerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "runner")
	p.runnersMu.Lock()
	p.runners[name] = provider
	p.runnersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.coalescersMu.RLock()
	for name, provider := range p.coalescers {
		stats := provider.Stats()
		p.coalescerPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.coalescerTriggers.WithLabelValues(name).Set(float64(stats.Triggers))
		p.coalescerFires.WithLabelValues(name).Set(float64(stats.Fires))
	}
	p.coalescersMu.RUnlock()

	p.runnersMu.RLock()
	for name, provider := range p.runners {
		stats := provider.Stats()
		kind := normalizeLabel(stats.Kind, "unknown")
		p.runnerPending.WithLabelValues(name, kind).Set(float64(stats.Pending))
		p.runnerActive.WithLabelValues(name, kind).Set(float64(stats.Active))
		p.runnerExecuted.WithLabelValues(name, kind).Set(float64(stats.Executed))
		if stats.Closed {
			p.runnerClosed.WithLabelValues(name, kind).Set(1)
		} else {
			p.runnerClosed.WithLabelValues(name, kind).Set(0)
		}
	}
	p.runnersMu.RUnlock()
}
