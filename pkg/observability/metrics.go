package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	redFlags     *prometheus.CounterVec
	escalations  *prometheus.CounterVec
	fallbacks    prometheus.Counter
}

// NewMetrics creates and registers the collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_turns_total",
				Help: "Total number of processed turns",
			},
			[]string{"node_id", "source"},
		),
		turnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "intake_turn_duration_seconds",
				Help:    "End-to-end duration of a turn",
				Buckets: prometheus.DefBuckets,
			},
		),
		redFlags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_red_flags_total",
				Help: "Red flags raised, by flag and severity",
			},
			[]string{"flag_id", "severity"},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_escalations_total",
				Help: "Escalations onto urgent paths, by origin and target",
			},
			[]string{"origin", "target"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "intake_generation_fallbacks_total",
				Help: "Turns answered with the deterministic fallback",
			},
		),
	}

	registry.MustRegister(m.turns, m.turnDuration, m.redFlags, m.escalations, m.fallbacks)
	return m
}

// Hooks returns lifecycle hooks that record into the collectors. Compose
// them with any application hooks before handing them to the engine.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnComplete: func(ctx context.Context, e *domain.TurnEvent) {
			m.turns.WithLabelValues(e.NodeID, e.Source).Inc()
			m.turnDuration.Observe(e.Duration.Seconds())
		},
		OnRedFlag: func(ctx context.Context, e *domain.RedFlagEvent) {
			m.redFlags.WithLabelValues(e.FlagID, string(e.Severity)).Inc()
		},
		OnEscalation: func(ctx context.Context, e *domain.EscalationEvent) {
			m.escalations.WithLabelValues(e.Origin, e.TargetNode).Inc()
		},
		OnGenerationFallback: func(ctx context.Context, e *domain.GenerationEvent) {
			m.fallbacks.Inc()
		},
	}
}

// Handler serves the collectors for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
