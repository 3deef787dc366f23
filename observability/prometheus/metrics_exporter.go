// Package prometheus adapts the coalescer metrics and stats surfaces to
// Prometheus collectors.
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/quenchkit/go-coalescer/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// FireWaitBuckets overrides the histogram buckets for the fire-wait
	// histogram. Defaults to prom.DefBuckets.
	FireWaitBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	triggersTotal   *prom.CounterVec
	firesTotal      *prom.CounterVec
	fireWaitSeconds *prom.HistogramVec
	cancelsTotal    *prom.CounterVec
	pending         *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for
// core.Metrics. Registration is idempotent: collectors already registered on
// reg are reused.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "coalescer"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.FireWaitBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	triggersVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "triggers_total",
		Help:      "Total number of trigger calls by outcome.",
	}, []string{"coalescer", "outcome"})
	firesVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "fires_total",
		Help:      "Total number of executed actions.",
	}, []string{"coalescer"})
	fireWaitVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "fire_wait_seconds",
		Help:      "Delay between an action's final trigger and its execution.",
		Buckets:   buckets,
	}, []string{"coalescer"})
	cancelsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cancels_total",
		Help:      "Total number of explicit cancellations of pending actions.",
	}, []string{"coalescer"})
	pendingVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pending",
		Help:      "Current number of pending scheduled items.",
	}, []string{"coalescer"})

	var err error
	if triggersVec, err = registerCollector(reg, triggersVec); err != nil {
		return nil, err
	}
	if firesVec, err = registerCollector(reg, firesVec); err != nil {
		return nil, err
	}
	if fireWaitVec, err = registerCollector(reg, fireWaitVec); err != nil {
		return nil, err
	}
	if cancelsVec, err = registerCollector(reg, cancelsVec); err != nil {
		return nil, err
	}
	if pendingVec, err = registerCollector(reg, pendingVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		triggersTotal:   triggersVec,
		firesTotal:      firesVec,
		fireWaitSeconds: fireWaitVec,
		cancelsTotal:    cancelsVec,
		pending:         pendingVec,
	}, nil
}

// RecordTrigger records one trigger call and its outcome.
func (m *MetricsExporter) RecordTrigger(coalescer, outcome string) {
	if m == nil {
		return
	}
	m.triggersTotal.WithLabelValues(
		normalizeLabel(coalescer, "unknown"), normalizeLabel(outcome, "unknown")).Inc()
}

// RecordFire records one executed action and its trigger-to-fire delay.
func (m *MetricsExporter) RecordFire(coalescer string, waited time.Duration) {
	if m == nil {
		return
	}
	label := normalizeLabel(coalescer, "unknown")
	m.firesTotal.WithLabelValues(label).Inc()
	m.fireWaitSeconds.WithLabelValues(label).Observe(waited.Seconds())
}

// RecordCancel records one explicit cancellation.
func (m *MetricsExporter) RecordCancel(coalescer string) {
	if m == nil {
		return
	}
	m.cancelsTotal.WithLabelValues(normalizeLabel(coalescer, "unknown")).Inc()
}

// RecordPending records the current pending depth.
func (m *MetricsExporter) RecordPending(coalescer string, depth int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(normalizeLabel(coalescer, "unknown")).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
