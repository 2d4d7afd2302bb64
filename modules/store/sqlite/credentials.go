package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskflowhq/taskflow/internal/store"
)

func (r *credentialRepo) Get(ctx context.Context, userID int64) (store.Credential, error) {
	var (
		c       store.Credential
		expiry  sql.NullString
		updated string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, expiry, updated_at
		FROM credentials WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &expiry, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Credential{}, store.ErrNotFound
	}
	if err != nil {
		return store.Credential{}, fmt.Errorf("sqlite: scan credential: %w", err)
	}

	if c.Expiry, err = decodeNullTime(expiry); err != nil {
		return store.Credential{}, err
	}
	if c.UpdatedAt, err = decodeTime(updated); err != nil {
		return store.Credential{}, err
	}
	return c, nil
}

// Put upserts the credential row; one row per user.
func (r *credentialRepo) Put(ctx context.Context, c store.Credential) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, access_token, refresh_token, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`,
		c.UserID, c.AccessToken, c.RefreshToken, encodeNullTime(c.Expiry), encodeTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put credential for user %d: %w", c.UserID, err)
	}
	return nil
}

// Delete removes the credential. Deleting an absent row is not an error;
// disconnect is idempotent.
func (r *credentialRepo) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: delete credential for user %d: %w", userID, err)
	}
	return nil
}
