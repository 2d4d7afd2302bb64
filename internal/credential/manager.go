// Package credential owns the refresh-before-expiry policy for per-user
// delegated-access tokens.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflowhq/taskflow/internal/store"
)

// refreshLookahead is how close to expiry a token may get before it is
// proactively refreshed. A token inside this window is never handed out:
// it could expire mid-call.
const refreshLookahead = 5 * time.Minute

var (
	// ErrNotConnected means the user has no refresh token on file.
	ErrNotConnected = errors.New("credential: provider not connected")

	// ErrRefreshFailed means the issuer rejected the refresh token.
	// The stored credential is left untouched so the next attempt retries.
	ErrRefreshFailed = errors.New("credential: token refresh failed")
)

// Manager hands out valid access tokens, refreshing them through the
// issuer when they are missing, expired, or about to expire.
type Manager struct {
	creds  store.Credentials
	issuer Issuer
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager. A nil logger defaults to slog.Default().
func NewManager(creds store.Credentials, issuer Issuer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		creds:  creds,
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
}

// IsConnected reports whether the credential carries a refresh token.
// Pure predicate — no store access.
func IsConnected(c store.Credential) bool {
	return c.RefreshToken != ""
}

// Connected reports whether the given user has a delegated-access grant.
func (m *Manager) Connected(ctx context.Context, userID int64) (bool, error) {
	c, err := m.creds.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return IsConnected(c), nil
}

// AccessToken returns an access token valid for at least the refresh
// lookahead window. It refreshes proactively when the stored expiry is
// unset or inside the window, persisting the new token on success. The
// cache-hit path performs no store write.
func (m *Manager) AccessToken(ctx context.Context, userID int64) (string, error) {
	c, err := m.creds.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotConnected
	}
	if err != nil {
		return "", fmt.Errorf("credential: load user %d: %w", userID, err)
	}
	if !IsConnected(c) {
		return "", ErrNotConnected
	}

	if c.Expiry != nil && c.Expiry.After(m.now().Add(refreshLookahead)) {
		return c.AccessToken, nil
	}

	m.logger.Info("credential: access token expired or expiring soon, refreshing", "user_id", userID)

	tok, err := m.issuer.Refresh(ctx, c.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	expiry := m.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.AccessToken = tok.AccessToken
	c.Expiry = &expiry
	if tok.RefreshToken != "" {
		// Issuer rotated the refresh token; keep the old one otherwise.
		c.RefreshToken = tok.RefreshToken
	}
	c.UpdatedAt = m.now()

	if err := m.creds.Put(ctx, c); err != nil {
		return "", fmt.Errorf("credential: persist refreshed token for user %d: %w", userID, err)
	}

	m.logger.Info("credential: access token refreshed", "user_id", userID, "expires_in", tok.ExpiresIn)
	return c.AccessToken, nil
}
