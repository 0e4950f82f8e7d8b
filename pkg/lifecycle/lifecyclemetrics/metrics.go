// Package lifecyclemetrics exports lifecycle events as Prometheus metrics.
package lifecyclemetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
)

// Metrics is a lifecycle.Listener that records event counts, running
// resources and provisioning durations.
type Metrics struct {
	EventsTotal       *prometheus.CounterVec   // events by phase
	RunningResources  prometheus.Gauge         // resources started and not yet stopped
	ProvisionDuration *prometheus.HistogramVec // attempt duration by result

	mu       sync.Mutex
	attempts map[string]time.Time
	running  map[string]struct{}
}

// New creates the metrics and registers them with reg. namespace prefixes
// every metric name.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "events_total",
		Help:      "Lifecycle events by phase",
	}, []string{"phase"})

	running := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "running_resources",
		Help:      "Resources started and not yet torn down",
	})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "provision_duration_seconds",
		Help:      "Duration of provisioning attempts",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"result"})

	reg.MustRegister(events, running, duration)

	return &Metrics{
		EventsTotal:       events,
		RunningResources:  running,
		ProvisionDuration: duration,
		attempts:          make(map[string]time.Time),
		running:           make(map[string]struct{}),
	}
}

// OnEvent implements lifecycle.Listener.
func (m *Metrics) OnEvent(e lifecycle.Event) {
	m.EventsTotal.WithLabelValues(e.Phase.String()).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Phase {
	case lifecycle.PhaseInstantiating:
		m.attempts[e.Resource] = e.Time
	case lifecycle.PhaseStarted:
		m.observe(e, "success")
		if _, ok := m.running[e.Resource]; !ok {
			m.running[e.Resource] = struct{}{}
			m.RunningResources.Inc()
		}
	case lifecycle.PhaseFailed:
		m.observe(e, "failure")
	case lifecycle.PhaseStopped, lifecycle.PhaseTeardownFailed:
		// Discard failures arrive as teardown-failed for resources that never
		// started; the running set filters them out.
		if _, ok := m.running[e.Resource]; ok {
			delete(m.running, e.Resource)
			m.RunningResources.Dec()
		}
	}
}

func (m *Metrics) observe(e lifecycle.Event, result string) {
	start, ok := m.attempts[e.Resource]
	if !ok {
		return
	}
	delete(m.attempts, e.Resource)
	m.ProvisionDuration.WithLabelValues(result).Observe(e.Time.Sub(start).Seconds())
}
