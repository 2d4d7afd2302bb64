package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/taskflowhq/taskflow/internal/store"
)

// Append inserts the execution record and fills in its assigned ID.
func (r *logRepo) Append(ctx context.Context, rec *store.ExecutionRecord) error {
	if rec.ExecutedAt.IsZero() {
		rec.ExecutedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO execution_logs (job_id, outcome, error, executed_at, execution_time_ms)
		VALUES (?, ?, ?, ?, ?)`,
		rec.JobID, string(rec.Outcome), rec.Error,
		encodeTime(rec.ExecutedAt), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append execution record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: execution record insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListByJob returns the most recent records first.
func (r *logRepo) ListByJob(ctx context.Context, jobID int64, limit int) ([]store.ExecutionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, outcome, error, executed_at, execution_time_ms
		FROM execution_logs
		WHERE job_id = ?
		ORDER BY id DESC
		LIMIT ?`, jobID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list execution records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []store.ExecutionRecord
	for rows.Next() {
		var (
			rec      store.ExecutionRecord
			outcome  string
			executed string
			ms       int64
		)
		if err := rows.Scan(&rec.ID, &rec.JobID, &outcome, &rec.Error, &executed, &ms); err != nil {
			return nil, fmt.Errorf("sqlite: scan execution record: %w", err)
		}
		rec.Outcome = store.Outcome(outcome)
		rec.Duration = time.Duration(ms) * time.Millisecond
		if rec.ExecutedAt, err = decodeTime(executed); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list execution records rows: %w", err)
	}
	return recs, nil
}
