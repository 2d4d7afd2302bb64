package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskflowhq/taskflow/internal/store"
)

// defaultMaxConcurrent bounds how many due jobs one pass runs at once.
const defaultMaxConcurrent = 8

// Loop is the per-minute scheduler pass. Every tick it scans the active
// scheduled jobs, matches each cron expression against one shared
// truncated minute, and fans out the due ones. One job's failure never
// touches its neighbours.
type Loop struct {
	jobs          store.Jobs
	executor      *Executor
	metrics       *Metrics
	logger        *slog.Logger
	maxConcurrent int
	now           func() time.Time
}

// NewLoop creates a Loop. metrics may be nil; maxConcurrent <= 0 falls
// back to the default.
func NewLoop(jobs store.Jobs, executor *Executor, metrics *Metrics, logger *slog.Logger, maxConcurrent int) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Loop{
		jobs:          jobs,
		executor:      executor,
		metrics:       metrics,
		logger:        logger,
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

// Name implements the periodic driver's job contract.
func (l *Loop) Name() string { return "scheduler-scan" }

// Schedule implements the periodic driver's job contract.
func (l *Loop) Schedule() string { return "* * * * *" }

// Run executes one pass against the current wall clock.
func (l *Loop) Run(ctx context.Context) error {
	_, err := l.RunDue(ctx, l.now())
	return err
}

// RunDue executes one scheduler pass against the given instant. Every
// job in the pass is matched against the same truncated minute, so a
// slow scan can never shift later jobs into the next minute. The error
// is non-nil only when the job list itself cannot be loaded.
func (l *Loop) RunDue(ctx context.Context, now time.Time) (TickReport, error) {
	started := l.now()
	current := now.Truncate(time.Minute)
	report := TickReport{At: current}

	jobs, err := l.jobs.ListActiveScheduled(ctx)
	if err != nil {
		l.metrics.TickCompleted(l.now().Sub(started), 0, err)
		return report, fmt.Errorf("engine: list scheduled jobs: %w", err)
	}
	report.Considered = len(jobs)

	var due []store.Job
	for _, job := range jobs {
		ok, err := Due(job.CronExpr, current)
		if err != nil {
			// A broken expression disables one job, not the pass.
			l.logger.Warn("engine: skipping job with invalid cron expression",
				"job_id", job.ID, "name", job.Name, "expr", job.CronExpr, "error", err)
			report.Skipped++
			continue
		}
		if ok {
			due = append(due, job)
		}
	}
	report.Matched = len(due)

	if len(due) > 0 {
		l.logger.Info("engine: scheduler pass", "minute", current.Format(time.RFC3339),
			"considered", report.Considered, "due", len(due))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxConcurrent)
	for _, job := range due {
		job := job
		g.Go(func() error {
			res := l.executor.Execute(gctx, job)
			l.metrics.RunCompleted(res)
			mu.Lock()
			report.Results = append(report.Results, res)
			mu.Unlock()
			return nil
		})
	}
	// Execute reports failures through JobResult, never an error, so
	// Wait only orders the fan-in.
	_ = g.Wait()

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].JobID < report.Results[j].JobID
	})
	for _, res := range report.Results {
		if res.State == RunSucceeded {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	l.metrics.TickCompleted(l.now().Sub(started), len(due), nil)
	return report, nil
}
