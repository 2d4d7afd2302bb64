package engine

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks scheduler and job-run counters. Registration errors are
// logged and the offending collector becomes a local no-op, so a double
// registration never takes the engine down.
type Metrics struct {
	ticksTotal       prometheus.Counter
	tickErrorsTotal  prometheus.Counter
	jobsDueTotal     prometheus.Counter
	tickDuration     prometheus.Histogram
	runOutcomesTotal *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// NewMetrics creates the engine metric set and registers it on reg.
func NewMetrics(reg prometheus.Registerer, logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Metrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_scheduler_ticks_total",
			Help: "Total number of scheduler passes.",
		}),
		tickErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_scheduler_tick_errors_total",
			Help: "Total number of scheduler passes that failed before matching.",
		}),
		jobsDueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_scheduler_jobs_due_total",
			Help: "Total number of jobs found due across all passes.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskflow_scheduler_tick_duration_seconds",
			Help:    "Duration of each scheduler pass in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		runOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_job_runs_total",
			Help: "Total number of job runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskflow_job_run_duration_seconds",
			Help:    "Duration of each job run in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	register(reg, logger, m.ticksTotal, "taskflow_scheduler_ticks_total")
	register(reg, logger, m.tickErrorsTotal, "taskflow_scheduler_tick_errors_total")
	register(reg, logger, m.jobsDueTotal, "taskflow_scheduler_jobs_due_total")
	register(reg, logger, m.tickDuration, "taskflow_scheduler_tick_duration_seconds")
	register(reg, logger, m.runOutcomesTotal, "taskflow_job_runs_total")
	register(reg, logger, m.runDuration, "taskflow_job_run_duration_seconds")
	return m
}

func register(reg prometheus.Registerer, logger *slog.Logger, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		logger.Warn("engine: metric registration failed", "metric", name, "error", err)
	}
}

// TickCompleted records one scheduler pass. A nil Metrics is a no-op so
// callers never need a nil check at each site.
func (m *Metrics) TickCompleted(duration time.Duration, due int, err error) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.tickDuration.Observe(duration.Seconds())
	m.jobsDueTotal.Add(float64(due))
	if err != nil {
		m.tickErrorsTotal.Inc()
	}
}

// RunCompleted records one job run's outcome and duration.
func (m *Metrics) RunCompleted(res JobResult) {
	if m == nil {
		return
	}
	outcome := "success"
	if res.State != RunSucceeded {
		outcome = "failure"
	}
	m.runOutcomesTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(res.Duration.Seconds())
}
