package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Metrics records payout pipeline outcomes for operator dashboards.
type Metrics struct {
	registry *prometheus.Registry

	payoutOutcomes      *prometheus.CounterVec
	integrityViolations *prometheus.CounterVec
	transferDuration    prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		payoutOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partnerpay",
			Name:      "payout_outcomes_total",
			Help:      "Payout attempts by terminal state.",
		}, []string{"state"}),
		integrityViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partnerpay",
			Name:      "integrity_violations_total",
			Help:      "Commission integrity violations by invariant.",
		}, []string{"invariant"}),
		transferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "partnerpay",
			Name:      "transfer_duration_seconds",
			Help:      "Wall time of provider transfer calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(m.payoutOutcomes, m.integrityViolations, m.transferDuration)
	return m
}

func (m *Metrics) RecordPayoutOutcome(state string) {
	m.payoutOutcomes.WithLabelValues(state).Inc()
}

func (m *Metrics) RecordIntegrityViolation(invariant string) {
	m.integrityViolations.WithLabelValues(invariant).Inc()
}

func (m *Metrics) ObserveTransferDuration(seconds float64) {
	m.transferDuration.Observe(seconds)
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
