package observability

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes pipeline activity as Prometheus collectors.
type Metrics struct {
	StageVisits    *prometheus.CounterVec
	StageFallbacks *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	Routes         *prometheus.CounterVec
	Runs           *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StageVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freelingo_stage_visits_total",
				Help: "Total number of stage executions",
			},
			[]string{"stage"},
		),
		StageFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freelingo_stage_fallbacks_total",
				Help: "Stage executions that substituted the fallback output",
			},
			[]string{"stage", "kind"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freelingo_stage_duration_seconds",
				Help:    "Duration of stage executions, evaluator call included",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
			},
			[]string{"stage"},
		),
		Routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freelingo_routes_total",
				Help: "Routing decisions taken after a referee verdict",
			},
			[]string{"target", "tripped"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freelingo_runs_total",
				Help: "Finished runs by terminal status",
			},
			[]string{"status"},
		),
	}
	for _, c := range []prometheus.Collector{m.StageVisits, m.StageFallbacks, m.StageDuration, m.Routes, m.Runs} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			m.StageVisits.WithLabelValues(string(e.Stage)).Inc()
		},
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			m.StageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
			if e.Failure != nil {
				m.StageFallbacks.WithLabelValues(string(e.Stage), string(e.Failure.Kind)).Inc()
			}
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			m.Routes.WithLabelValues(string(e.Target), strconv.FormatBool(e.Tripped)).Inc()
		},
		OnRunComplete: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(string(e.Status)).Inc()
		},
	}
}
