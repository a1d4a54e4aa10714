// Package metrics holds the Prometheus instruments of a streakrun run.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Pipeline step names.
const (
	StepIngest    = "ingest"
	StepPivot     = "pivot"
	StepSystems   = "systems"
	StepStreaks   = "streaks"
	StepAggregate = "aggregate"
	StepTrends    = "trends"
	StepReport    = "report"
	StepSinks     = "sinks"
)

// Step results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Registry holds all instruments on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	StepDuration    *prometheus.HistogramVec
	PipelineSteps   *prometheus.CounterVec
	RowsIngested    prometheus.Counter
	RowsDropped     *prometheus.CounterVec
	Recommendations *prometheus.CounterVec
	RecoveryEvents  *prometheus.CounterVec
	ActiveStreaks   prometheus.Gauge
	OpenWindows     prometheus.Gauge
	AlertsSent      *prometheus.CounterVec
	LastRun         prometheus.Gauge
}

// NewRegistry creates instruments under namespace.
func NewRegistry(namespace string) *Registry {
	if namespace == "" {
		namespace = "streakrun"
	}
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of each pipeline step in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"step", "result"},
		),

		PipelineSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_steps_total",
				Help:      "Total number of pipeline steps executed",
			},
			[]string{"step", "result"},
		),

		RowsIngested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_ingested_total",
				Help:      "Game rows loaded from the input file",
			},
		),

		RowsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_dropped_total",
				Help:      "Input rows dropped by reason",
			},
			[]string{"reason"},
		),

		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommendations_total",
				Help:      "Recommendations generated by system and label",
			},
			[]string{"system", "recommendation"},
		),

		RecoveryEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recovery_events_total",
				Help:      "Completed recovery windows by system and outcome",
			},
			[]string{"system", "outcome"},
		),

		ActiveStreaks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_streaks",
				Help:      "System/team pairs currently on an active loss streak",
			},
		),

		OpenWindows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_recovery_windows",
				Help:      "Recovery windows still open at the end of data",
			},
		),

		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Streak alerts by result",
			},
			[]string{"result"},
		),

		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
	}

	r.reg.MustRegister(
		r.StepDuration,
		r.PipelineSteps,
		r.RowsIngested,
		r.RowsDropped,
		r.Recommendations,
		r.RecoveryEvents,
		r.ActiveStreaks,
		r.OpenWindows,
		r.AlertsSent,
		r.LastRun,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node_exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// RecordRecovery counts a completed recovery window.
func (r *Registry) RecordRecovery(system string, recovered bool) {
	outcome := "lost"
	if recovered {
		outcome = "recovered"
	}
	r.RecoveryEvents.WithLabelValues(system, outcome).Inc()
}

// StepTimer tracks execution time for a pipeline step.
type StepTimer struct {
	metrics *Registry
	step    string
	start   time.Time
}

// StartStepTimer begins timing a pipeline step.
func (r *Registry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{metrics: r, step: step, start: time.Now()}
}

// Stop records the step duration under result.
func (st *StepTimer) Stop(result string) time.Duration {
	duration := time.Since(st.start)
	st.metrics.StepDuration.WithLabelValues(st.step, result).Observe(duration.Seconds())
	st.metrics.PipelineSteps.WithLabelValues(st.step, result).Inc()

	log.Debug().
		Str("step", st.step).
		Str("result", result).
		Dur("duration", duration).
		Msg("Pipeline step completed")
	return duration
}
