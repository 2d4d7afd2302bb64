// Package store defines the persisted domain types and the repository
// interfaces backing them. Concrete implementations live in separate
// modules (e.g. store.sqlite).
package store

import "time"

// TriggerKind says how a job is started.
type TriggerKind string

const (
	// TriggerSchedule jobs fire from the periodic scheduler when their
	// cron expression matches the current minute.
	TriggerSchedule TriggerKind = "SCHEDULE"

	// TriggerManual jobs only run on an explicit run-now request.
	TriggerManual TriggerKind = "MANUAL"
)

// Outcome is the result of a single job run.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// User owns jobs and a provider credential. Authentication is out of
// scope here; a user row is just an identity anchor.
type User struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// Job is a user-owned automation definition.
type Job struct {
	ID      int64
	UserID  int64
	Name    string
	Trigger TriggerKind

	// CronExpr is a 5- or 6-field cron expression. Required for
	// SCHEDULE jobs to ever fire; ignored for MANUAL jobs.
	CronExpr string

	// ActionType selects the action (e.g. "EMAIL_RECAP", "SEND_EMAIL").
	ActionType string

	// ActionConfig is an opaque JSON document whose schema depends on
	// ActionType. Parsed by the dispatcher, never by the store.
	ActionConfig string

	Active    bool
	CreatedAt time.Time

	// LastRunAt is nil until the first successful run.
	LastRunAt *time.Time
}

// Credential is the stored delegated-access grant for one user.
// A user with no refresh token is considered disconnected.
type Credential struct {
	UserID       int64
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
	UpdatedAt    time.Time
}

// ExecutionRecord is an immutable audit entry for one job-run attempt.
type ExecutionRecord struct {
	ID         int64
	JobID      int64
	Outcome    Outcome
	Error      string // present iff Outcome == OutcomeFailure
	ExecutedAt time.Time
	Duration   time.Duration
}
