package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/taskflowhq/taskflow/internal/credential"
	"github.com/taskflowhq/taskflow/internal/store"
)

// stateTTL bounds how long a consent flow may sit between the authorize
// redirect and the callback.
const stateTTL = 10 * time.Minute

// stateStore maps one-time OAuth state tokens to the user email that
// initiated the flow.
type stateStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]stateEntry
}

type stateEntry struct {
	email   string
	expires time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{ttl: ttl, m: make(map[string]stateEntry)}
}

// Issue creates a fresh state token bound to the email.
func (s *stateStore) Issue(email string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Opportunistic sweep; the map only grows while flows are pending.
	now := time.Now()
	for k, e := range s.m {
		if now.After(e.expires) {
			delete(s.m, k)
		}
	}
	s.m[token] = stateEntry{email: email, expires: now.Add(s.ttl)}
	return token, nil
}

// Claim consumes the token, returning its email. A token claims once.
func (s *stateStore) Claim(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[token]
	if !ok {
		return "", false
	}
	delete(s.m, token)
	if time.Now().After(e.expires) {
		return "", false
	}
	return e.email, true
}

// handleGoogleAuthorize starts the consent flow for the given user.
func (g *Gateway) handleGoogleAuthorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("user")))
		if email == "" || !strings.Contains(email, "@") {
			writeError(w, http.StatusBadRequest, "user query parameter must be an email address")
			return
		}

		state, err := g.states.Issue(email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "state generation failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"auth_url": g.connect.AuthURL(state),
		})
	}
}

// handleGoogleCallback finishes the consent flow: exchanges the code,
// binds the credential to the initiating user, and stores it. Public —
// the browser arrives here by redirect from Google.
func (g *Gateway) handleGoogleCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errCode := q.Get("error"); errCode != "" {
			writeError(w, http.StatusBadRequest, "consent denied: "+errCode)
			return
		}

		code, state := q.Get("code"), q.Get("state")
		if code == "" || state == "" {
			writeError(w, http.StatusBadRequest, "code and state are required")
			return
		}

		email, ok := g.states.Claim(state)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown or expired state")
			return
		}

		tok, err := g.connect.Exchange(r.Context(), code)
		if err != nil {
			g.logger.Error("gateway: code exchange failed", "error", err)
			writeError(w, http.StatusBadGateway, "code exchange failed")
			return
		}

		user, err := g.resolveOwner(r.Context(), email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "user lookup failed")
			return
		}

		expiry := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
		cred := store.Credential{
			UserID:       user.ID,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       &expiry,
		}
		if err := g.creds.Put(r.Context(), cred); err != nil {
			g.logger.Error("gateway: store credential", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "credential storage failed")
			return
		}

		g.logger.Info("gateway: mailbox connected", "user_id", user.ID)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h2>Mailbox connected</h2><p>You can close this window.</p></body></html>"))
	}
}

// handleGoogleStatus reports whether the user has a usable grant.
func (g *Gateway) handleGoogleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := g.userFromQuery(w, r)
		if !ok {
			return
		}

		connected := false
		cred, err := g.creds.Get(r.Context(), user.ID)
		switch {
		case err == nil:
			connected = credential.IsConnected(cred)
		case errors.Is(err, store.ErrNotFound):
		default:
			writeError(w, http.StatusInternalServerError, "credential lookup failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"user":      user.Email,
			"connected": connected,
		})
	}
}

// handleGoogleDisconnect drops the stored grant. Idempotent.
func (g *Gateway) handleGoogleDisconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := g.userFromQuery(w, r)
		if !ok {
			return
		}
		if err := g.creds.Delete(r.Context(), user.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "disconnect failed")
			return
		}
		g.logger.Info("gateway: mailbox disconnected", "user_id", user.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// userFromQuery resolves the existing user named by the user query
// parameter, writing the error response itself on failure.
func (g *Gateway) userFromQuery(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("user")))
	if email == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return store.User{}, false
	}

	user, err := g.users.GetByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown user")
		return store.User{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "user lookup failed")
		return store.User{}, false
	}
	return user, true
}
