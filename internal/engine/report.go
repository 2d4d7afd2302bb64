package engine

import (
	"time"

	"github.com/taskflowhq/taskflow/internal/store"
)

// RunState tracks a single run through its lifecycle. A run is Pending
// once selected, Running while the action executes, and ends Succeeded
// or Failed.
type RunState string

const (
	RunPending   RunState = "PENDING"
	RunRunning   RunState = "RUNNING"
	RunSucceeded RunState = "SUCCEEDED"
	RunFailed    RunState = "FAILED"
)

// JobResult is the terminal outcome of one job run.
type JobResult struct {
	JobID    int64
	Name     string
	State    RunState
	Err      error
	Duration time.Duration
}

// TickReport summarizes one scheduler pass.
type TickReport struct {
	// At is the truncated minute the pass evaluated against.
	At time.Time

	// Considered counts the active scheduled jobs scanned.
	Considered int

	// Matched counts the jobs whose cron expression hit this minute.
	Matched int

	// Skipped counts the jobs dropped for an invalid cron expression.
	Skipped int

	// Succeeded and Failed partition the matched runs by outcome.
	Succeeded int
	Failed    int

	// Results holds one entry per matched job.
	Results []JobResult
}

func outcomeFor(state RunState) store.Outcome {
	if state == RunSucceeded {
		return store.OutcomeSuccess
	}
	return store.OutcomeFailure
}
