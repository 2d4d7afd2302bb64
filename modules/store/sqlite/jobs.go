package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskflowhq/taskflow/internal/store"
)

const jobColumns = `id, user_id, name, trigger_kind, cron_expr, action_type, action_config, active, created_at, last_run_at`

// Create inserts the job and fills in its assigned ID.
func (r *jobRepo) Create(ctx context.Context, j *store.Job) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (user_id, name, trigger_kind, cron_expr, action_type, action_config, active, created_at, last_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.UserID, j.Name, string(j.Trigger), j.CronExpr, j.ActionType, j.ActionConfig,
		boolToInt(j.Active), encodeTime(j.CreatedAt), encodeNullTime(j.LastRunAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: job insert id: %w", err)
	}
	j.ID = id
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id int64) (store.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Job{}, store.ErrNotFound
	}
	return j, err
}

func (r *jobRepo) ListByUser(ctx context.Context, userID int64) ([]store.Job, error) {
	return r.list(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? ORDER BY id`, userID)
}

// ListActiveScheduled returns every candidate for the per-minute scan.
func (r *jobRepo) ListActiveScheduled(ctx context.Context) ([]store.Job, error) {
	return r.list(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE active = 1 AND trigger_kind = ? ORDER BY id`,
		string(store.TriggerSchedule))
}

func (r *jobRepo) list(ctx context.Context, query string, args ...any) ([]store.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []store.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list jobs rows: %w", err)
	}
	return jobs, nil
}

// Update rewrites every mutable field except the last-run stamp.
func (r *jobRepo) Update(ctx context.Context, j *store.Job) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET name = ?, trigger_kind = ?, cron_expr = ?, action_type = ?, action_config = ?, active = ?
		WHERE id = ?`,
		j.Name, string(j.Trigger), j.CronExpr, j.ActionType, j.ActionConfig,
		boolToInt(j.Active), j.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update job %d: %w", j.ID, err)
	}
	return requireRow(res, "update job")
}

// SetLastRun records a successful run time without touching other fields.
func (r *jobRepo) SetLastRun(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET last_run_at = ? WHERE id = ?`, encodeTime(at), id)
	if err != nil {
		return fmt.Errorf("sqlite: set last run for job %d: %w", id, err)
	}
	return requireRow(res, "set last run")
}

func (r *jobRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete job %d: %w", id, err)
	}
	return requireRow(res, "delete job")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (store.Job, error) {
	var (
		j       store.Job
		trigger string
		active  int
		created string
		lastRun sql.NullString
	)
	err := row.Scan(&j.ID, &j.UserID, &j.Name, &trigger, &j.CronExpr,
		&j.ActionType, &j.ActionConfig, &active, &created, &lastRun)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Job{}, err
		}
		return store.Job{}, fmt.Errorf("sqlite: scan job: %w", err)
	}

	j.Trigger = store.TriggerKind(trigger)
	j.Active = active != 0
	if j.CreatedAt, err = decodeTime(created); err != nil {
		return store.Job{}, err
	}
	if j.LastRunAt, err = decodeNullTime(lastRun); err != nil {
		return store.Job{}, err
	}
	return j, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// requireRow maps "zero rows affected" to ErrNotFound.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: %s rows affected: %w", op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
