package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskflowhq/taskflow/internal/store"
)

// Create inserts the user and fills in its assigned ID.
func (r *userRepo) Create(ctx context.Context, u *store.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, created_at) VALUES (?, ?)`,
		u.Email, encodeTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: user insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (store.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = ?`, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (store.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE email = ?`, email))
}

func (r *userRepo) scanOne(row *sql.Row) (store.User, error) {
	var (
		u       store.User
		created string
	)
	err := row.Scan(&u.ID, &u.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("sqlite: scan user: %w", err)
	}
	if u.CreatedAt, err = decodeTime(created); err != nil {
		return store.User{}, err
	}
	return u, nil
}
