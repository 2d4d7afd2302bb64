package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/taskflowhq/taskflow/internal/credential"
	"github.com/taskflowhq/taskflow/internal/engine"
	"github.com/taskflowhq/taskflow/internal/store"
)

type memStore struct {
	mu    sync.Mutex
	users map[int64]store.User
	jobs  map[int64]store.Job
	creds map[int64]store.Credential
	recs  []store.ExecutionRecord

	nextUser int64
	nextJob  int64
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]store.User),
		jobs:  make(map[int64]store.Job),
		creds: make(map[int64]store.Credential),
	}
}

func (s *memStore) Create(_ context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u.ID = s.nextUser
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *memStore) Get(_ context.Context, id int64) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

type memJobs struct{ s *memStore }

func (m memJobs) Create(_ context.Context, j *store.Job) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextJob++
	j.ID = m.s.nextJob
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	m.s.jobs[j.ID] = *j
	return nil
}

func (m memJobs) Get(_ context.Context, id int64) (store.Job, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	j, ok := m.s.jobs[id]
	if !ok {
		return store.Job{}, store.ErrNotFound
	}
	return j, nil
}

func (m memJobs) ListByUser(_ context.Context, userID int64) ([]store.Job, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []store.Job
	for _, j := range m.s.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m memJobs) ListActiveScheduled(_ context.Context) ([]store.Job, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []store.Job
	for _, j := range m.s.jobs {
		if j.Active && j.Trigger == store.TriggerSchedule {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m memJobs) Update(_ context.Context, j *store.Job) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.jobs[j.ID]; !ok {
		return store.ErrNotFound
	}
	m.s.jobs[j.ID] = *j
	return nil
}

func (m memJobs) SetLastRun(_ context.Context, id int64, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	j, ok := m.s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	j.LastRunAt = &at
	m.s.jobs[id] = j
	return nil
}

func (m memJobs) Delete(_ context.Context, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.s.jobs, id)
	return nil
}

type memCreds struct{ s *memStore }

func (m memCreds) Get(_ context.Context, userID int64) (store.Credential, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.creds[userID]
	if !ok {
		return store.Credential{}, store.ErrNotFound
	}
	return c, nil
}

func (m memCreds) Put(_ context.Context, c store.Credential) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.creds[c.UserID] = c
	return nil
}

func (m memCreds) Delete(_ context.Context, userID int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.creds, userID)
	return nil
}

type memLogs struct{ s *memStore }

func (m memLogs) Append(_ context.Context, rec *store.ExecutionRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rec.ID = int64(len(m.s.recs) + 1)
	m.s.recs = append(m.s.recs, *rec)
	return nil
}

func (m memLogs) ListByJob(_ context.Context, jobID int64, limit int) ([]store.ExecutionRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []store.ExecutionRecord
	for i := len(m.s.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.s.recs[i].JobID == jobID {
			out = append(out, m.s.recs[i])
		}
	}
	return out, nil
}

// fakeRunner records RunNow calls.
type fakeRunner struct {
	res   engine.JobResult
	err   error
	calls int
	lastID int64
}

func (f *fakeRunner) RunNow(_ context.Context, jobID int64) (engine.JobResult, error) {
	f.calls++
	f.lastID = jobID
	if f.err != nil {
		return engine.JobResult{}, f.err
	}
	res := f.res
	res.JobID = jobID
	return res, nil
}

// fakeConnect is a canned ConnectClient.
type fakeConnect struct {
	exchangeErr error
	lastCode    string
}

func (f *fakeConnect) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeConnect) Exchange(_ context.Context, code string) (credential.Token, error) {
	f.lastCode = code
	if f.exchangeErr != nil {
		return credential.Token{}, f.exchangeErr
	}
	return credential.Token{AccessToken: "at-1", RefreshToken: "rt-1", ExpiresIn: 3600}, nil
}

func (f *fakeConnect) UserEmail(_ context.Context, _ string) (string, error) {
	return "ana@example.com", nil
}

// newTestGateway builds a started-equivalent gateway over in-memory
// collaborators and returns it with its HTTP test server.
func newTestGateway(t *testing.T, cfg Config) (*Gateway, *memStore, *fakeRunner, *fakeConnect, *httptest.Server) {
	t.Helper()

	s := newMemStore()
	runner := &fakeRunner{res: engine.JobResult{State: engine.RunSucceeded, Duration: 120 * time.Millisecond}}
	connect := &fakeConnect{}

	cfg.defaults()
	g := &Gateway{
		config:    cfg,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:   &Metrics{},
		states:    newStateStore(stateTTL),
		startedAt: time.Now(),
		users:     s,
		jobs:      memJobs{s: s},
		creds:     memCreds{s: s},
		logs:      memLogs{s: s},
		runner:    runner,
		connect:   connect,
	}

	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return g, s, runner, connect, srv
}

var errBoom = errors.New("boom")

func mustDo(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
