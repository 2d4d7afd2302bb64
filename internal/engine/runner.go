package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/taskflowhq/taskflow/internal/store"
)

// ErrNotStarted is returned by Runner calls made before the engine
// module has started.
var ErrNotStarted = errors.New("engine: not started")

// Runner exposes on-demand job execution to other modules. It is
// registered as a service during provisioning and bound to a live
// executor at start, so consumers can resolve it early and call it late.
type Runner struct {
	mu       sync.RWMutex
	jobs     store.Jobs
	executor *Executor
	metrics  *Metrics
}

func (r *Runner) bind(jobs store.Jobs, executor *Executor, metrics *Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = jobs
	r.executor = executor
	r.metrics = metrics
}

// RunNow executes the job immediately, regardless of its trigger kind,
// active flag, or schedule. The run is recorded like any scheduled one.
func (r *Runner) RunNow(ctx context.Context, jobID int64) (JobResult, error) {
	r.mu.RLock()
	jobs, executor, metrics := r.jobs, r.executor, r.metrics
	r.mu.RUnlock()

	if executor == nil {
		return JobResult{}, ErrNotStarted
	}

	job, err := jobs.Get(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return JobResult{}, fmt.Errorf("%w: id %d", ErrJobNotFound, jobID)
	}
	if err != nil {
		return JobResult{}, fmt.Errorf("engine: load job %d: %w", jobID, err)
	}

	res := executor.Execute(ctx, job)
	metrics.RunCompleted(res)
	return res, nil
}
