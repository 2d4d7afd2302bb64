package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflowhq/taskflow/internal/credential"
	"github.com/taskflowhq/taskflow/internal/store"
)

// Executor runs a single job end to end: resolve the owner, verify the
// owner's mailbox is connected, dispatch the action, append exactly one
// execution record, and stamp the job's last-run time on success.
type Executor struct {
	users      store.Users
	jobs       store.Jobs
	logs       store.ExecutionLogs
	creds      *credential.Manager
	dispatcher *Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewExecutor creates an Executor. A nil logger defaults to slog.Default().
func NewExecutor(users store.Users, jobs store.Jobs, logs store.ExecutionLogs, creds *credential.Manager, dispatcher *Dispatcher, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		users:      users,
		jobs:       jobs,
		logs:       logs,
		creds:      creds,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute runs the job once and returns its terminal result. The result
// carries the run error; Execute itself never returns one, so a caller
// fanning out over many jobs cannot lose a record to an early return.
func (e *Executor) Execute(ctx context.Context, job store.Job) JobResult {
	res := JobResult{JobID: job.ID, Name: job.Name, State: RunPending}
	started := e.now()

	e.logger.Info("engine: executing job", "job_id", job.ID, "name", job.Name, "action", job.ActionType)

	res.State = RunRunning
	err := e.runAction(ctx, job)
	res.Duration = e.now().Sub(started)

	if err != nil {
		res.State = RunFailed
		res.Err = err
		e.logger.Error("engine: job failed",
			"job_id", job.ID, "name", job.Name, "duration", res.Duration, "error", err)
	} else {
		res.State = RunSucceeded
		e.logger.Info("engine: job succeeded",
			"job_id", job.ID, "name", job.Name, "duration", res.Duration)
	}

	e.record(ctx, job, started, res)
	return res
}

func (e *Executor) runAction(ctx context.Context, job store.Job) error {
	user, err := e.users.Get(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("engine: load owner of job %d: %w", job.ID, err)
	}

	// A disconnected owner fails here, before the action ever runs, so
	// the recorded error names the grant and not some later symptom.
	connected, err := e.creds.Connected(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("engine: check grant of user %d: %w", job.UserID, err)
	}
	if !connected {
		return fmt.Errorf("engine: user %d: %w", job.UserID, credential.ErrNotConnected)
	}

	return e.dispatcher.Dispatch(ctx, user, job.ActionType, job.ActionConfig)
}

// record appends the audit entry and, on success, the last-run stamp.
// Bookkeeping failures are logged, not propagated: the run already
// happened and its outcome must not be rewritten by a store hiccup.
func (e *Executor) record(ctx context.Context, job store.Job, started time.Time, res JobResult) {
	rec := store.ExecutionRecord{
		JobID:      job.ID,
		Outcome:    outcomeFor(res.State),
		ExecutedAt: started,
		Duration:   res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := e.logs.Append(ctx, &rec); err != nil {
		e.logger.Error("engine: append execution record", "job_id", job.ID, "error", err)
	}

	if res.State == RunSucceeded {
		if err := e.jobs.SetLastRun(ctx, job.ID, started); err != nil {
			e.logger.Error("engine: stamp last run", "job_id", job.ID, "error", err)
		}
	}
}
