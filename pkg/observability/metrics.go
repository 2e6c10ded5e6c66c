package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus collectors of a dockgen process.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal             *prometheus.CounterVec
	StageDuration         *prometheus.HistogramVec
	StageFailuresTotal    *prometheus.CounterVec
	TeardownFailuresTotal prometheus.Counter
	MigrationsApplied     prometheus.Counter
	GeneratedFilesTotal   prometheus.Counter
}

// NewMetrics creates and registers all collectors
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dockgen_runs_total",
				Help: "Total number of orchestration runs by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dockgen_stage_duration_seconds",
				Help:    "Duration of each orchestration stage in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		StageFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dockgen_stage_failures_total",
				Help: "Total number of failed orchestration stages",
			},
			[]string{"stage"},
		),
		TeardownFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dockgen_teardown_failures_total",
				Help: "Container removals that failed and were ignored",
			},
		),
		MigrationsApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dockgen_migrations_applied_total",
				Help: "Migration scripts applied",
			},
		),
		GeneratedFilesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dockgen_generated_files_total",
				Help: "Source files written by the generator",
			},
		),
	}

	registry.MustRegister(
		m.RunsTotal,
		m.StageDuration,
		m.StageFailuresTotal,
		m.TeardownFailuresTotal,
		m.MigrationsApplied,
		m.GeneratedFilesTotal,
	)

	return m
}

// RecordRun counts a finished orchestration run
func (m *Metrics) RecordRun(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the duration and, on error, the failure of a stage
func (m *Metrics) ObserveStage(stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		m.StageFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// RecordTeardownFailure counts a swallowed container removal error
func (m *Metrics) RecordTeardownFailure() {
	if m == nil {
		return
	}
	m.TeardownFailuresTotal.Inc()
}

// AddMigrations counts applied migration scripts
func (m *Metrics) AddMigrations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MigrationsApplied.Add(float64(n))
}

// AddGeneratedFiles counts written source files
func (m *Metrics) AddGeneratedFiles(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.GeneratedFilesTotal.Add(float64(n))
}

// Push sends all collected metrics to a Prometheus Pushgateway.
// Short-lived CLI runs cannot be scraped, so this is the only export path.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
