package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exposed on /metrics. Each server owns
// its own registry so tests can build servers independently.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal     *prometheus.CounterVec
	QualifiedLeads prometheus.Counter
	Notifications  prometheus.Counter
	TurnDuration   prometheus.Histogram
}

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadbot_turns_total",
				Help: "Total number of conversational turns",
			},
			[]string{"status"},
		),
		QualifiedLeads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadbot_qualified_leads_total",
				Help: "Total number of turns that passed the qualification gate",
			},
		),
		Notifications: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leadbot_lead_persists_total",
				Help: "Total number of turns that persisted a lead",
			},
		),
		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadbot_turn_duration_seconds",
				Help:    "Duration of conversational turns in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
	}
}
