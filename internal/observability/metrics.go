// Package observability defines the Prometheus metrics exported on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meds"

// Metrics holds the Prometheus counters and histograms for observation intake
// and report delivery. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ObservationsSaved    prometheus.Counter
	ObservationsRejected prometheus.Counter
	ObservationsNotified prometheus.Counter

	ReportsDispatched *prometheus.CounterVec // labels: state={sent,render_failed,dispatch_failed}
	DispatchDuration  prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_saved_total",
			Help:      "Total observations persisted.",
		}),
		ObservationsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_rejected_total",
			Help:      "Total observation submissions rejected by validation.",
		}),
		ObservationsNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_notified_total",
			Help:      "Total stored observations marked as notified.",
		}),
		ReportsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_dispatched_total",
			Help:      "Report dispatch attempts by terminal state.",
		}, []string{"state"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of the mail transport call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.ObservationsSaved,
		m.ObservationsRejected,
		m.ObservationsNotified,
		m.ReportsDispatched,
		m.DispatchDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// ObservationSaved increments the saved counter.
func (m *Metrics) ObservationSaved() {
	if m != nil {
		m.ObservationsSaved.Inc()
	}
}

// ObservationRejected increments the rejected counter.
func (m *Metrics) ObservationRejected() {
	if m != nil {
		m.ObservationsRejected.Inc()
	}
}

// ObservationsMarked adds n to the notified counter.
func (m *Metrics) ObservationsMarked(n int) {
	if m != nil {
		m.ObservationsNotified.Add(float64(n))
	}
}

// ReportDispatched records a dispatch outcome and, when the transport was
// called, its duration in seconds.
func (m *Metrics) ReportDispatched(state string, seconds float64) {
	if m == nil {
		return
	}
	m.ReportsDispatched.WithLabelValues(state).Inc()
	if seconds > 0 {
		m.DispatchDuration.Observe(seconds)
	}
}
