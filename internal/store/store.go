package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("store: not found")

// Users persists user identities.
type Users interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}

// Jobs persists automation definitions.
type Jobs interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id int64) (Job, error)
	ListByUser(ctx context.Context, userID int64) ([]Job, error)

	// ListActiveScheduled returns every job with Active=true and
	// Trigger=SCHEDULE. Cron validity is intentionally not part of the
	// predicate; the scheduler checks it per job during matching.
	ListActiveScheduled(ctx context.Context) ([]Job, error)

	Update(ctx context.Context, j *Job) error

	// SetLastRun records a successful run timestamp without touching
	// any other field.
	SetLastRun(ctx context.Context, id int64, at time.Time) error

	Delete(ctx context.Context, id int64) error
}

// Credentials persists per-user delegated-access grants.
type Credentials interface {
	Get(ctx context.Context, userID int64) (Credential, error)
	Put(ctx context.Context, c Credential) error
	Delete(ctx context.Context, userID int64) error
}

// ExecutionLogs is the append-only run history.
type ExecutionLogs interface {
	Append(ctx context.Context, rec *ExecutionRecord) error
	ListByJob(ctx context.Context, jobID int64, limit int) ([]ExecutionRecord, error)
}
