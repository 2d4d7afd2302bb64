package engine

import "errors"

var (
	// ErrInvalidSchedule means a cron expression is blank or unparseable.
	// The scheduler treats the job as never due and surfaces the error in
	// the tick report instead of aborting the batch.
	ErrInvalidSchedule = errors.New("engine: invalid cron schedule")

	// ErrUnknownAction means a job carries an action type no dispatcher
	// handler recognizes.
	ErrUnknownAction = errors.New("engine: unknown action type")

	// ErrInvalidConfig means a required action configuration field is
	// missing or malformed.
	ErrInvalidConfig = errors.New("engine: invalid action configuration")

	// ErrJobNotFound is returned by run-now for an unknown job ID.
	ErrJobNotFound = errors.New("engine: job not found")
)
