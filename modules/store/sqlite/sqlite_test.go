package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskflowhq/taskflow/internal/core"
	"github.com/taskflowhq/taskflow/internal/store"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	dir := t.TempDir()
	m := &Module{
		config: Config{
			Path:        filepath.Join(dir, "test.db"),
			BusyTimeout: defaultBusyTimeout,
		},
	}
	m.config.defaults()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := core.NewAppContext(logger, dir)

	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	t.Cleanup(func() {
		_ = m.Stop(context.Background())
	})

	return m
}

func createUser(t *testing.T, m *Module, email string) store.User {
	t.Helper()
	u := store.User{Email: email}
	if err := m.users.Create(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMigrateIsIdempotent(t *testing.T) {
	m := newTestModule(t)
	if err := migrate(m.db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUsers(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	u := createUser(t, m, "ana@example.com")
	if u.ID == 0 {
		t.Fatal("create did not assign an ID")
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("create did not stamp created_at")
	}

	got, err := m.users.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "ana@example.com" {
		t.Errorf("email = %q", got.Email)
	}

	byEmail, err := m.users.GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("by email ID = %d, want %d", byEmail.ID, u.ID)
	}

	if _, err := m.users.Get(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}

	// Email is unique.
	dup := store.User{Email: "ana@example.com"}
	if err := m.users.Create(ctx, &dup); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestJobsRoundTrip(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	u := createUser(t, m, "ana@example.com")

	j := store.Job{
		UserID:       u.ID,
		Name:         "morning recap",
		Trigger:      store.TriggerSchedule,
		CronExpr:     "0 9 * * *",
		ActionType:   "EMAIL_RECAP",
		ActionConfig: `{"hoursBack":12}`,
		Active:       true,
	}
	if err := m.jobs.Create(ctx, &j); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := m.jobs.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != j.Name || got.CronExpr != j.CronExpr || got.ActionConfig != j.ActionConfig {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.LastRunAt != nil {
		t.Errorf("new job has last run %v", got.LastRunAt)
	}
	if !got.Active || got.Trigger != store.TriggerSchedule {
		t.Errorf("flags lost: %+v", got)
	}
}

func TestJobsListActiveScheduled(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	u := createUser(t, m, "ana@example.com")

	mk := func(name string, trigger store.TriggerKind, active bool) {
		j := store.Job{
			UserID: u.ID, Name: name, Trigger: trigger,
			CronExpr: "* * * * *", ActionType: "SEND_EMAIL", Active: active,
		}
		if err := m.jobs.Create(ctx, &j); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	mk("active scheduled", store.TriggerSchedule, true)
	mk("inactive scheduled", store.TriggerSchedule, false)
	mk("active manual", store.TriggerManual, true)

	got, err := m.jobs.ListActiveScheduled(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "active scheduled" {
		t.Errorf("scan candidates = %+v, want only the active scheduled job", got)
	}
}

func TestJobsUpdateAndSetLastRun(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	u := createUser(t, m, "ana@example.com")

	j := store.Job{
		UserID: u.ID, Name: "before", Trigger: store.TriggerSchedule,
		CronExpr: "0 9 * * *", ActionType: "SEND_EMAIL", Active: true,
	}
	if err := m.jobs.Create(ctx, &j); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	if err := m.jobs.SetLastRun(ctx, j.ID, at); err != nil {
		t.Fatalf("set last run: %v", err)
	}

	j.Name = "after"
	j.Active = false
	if err := m.jobs.Update(ctx, &j); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := m.jobs.Get(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "after" || got.Active {
		t.Errorf("update lost: %+v", got)
	}
	// Update must not clobber the last-run stamp.
	if got.LastRunAt == nil || !got.LastRunAt.Equal(at) {
		t.Errorf("last run = %v, want %v", got.LastRunAt, at)
	}

	if err := m.jobs.SetLastRun(ctx, 404, at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("set last run on missing job err = %v, want ErrNotFound", err)
	}
	if err := m.jobs.Update(ctx, &store.Job{ID: 404}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing job err = %v, want ErrNotFound", err)
	}
}

func TestJobsDelete(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	u := createUser(t, m, "ana@example.com")

	j := store.Job{UserID: u.ID, Name: "gone", Trigger: store.TriggerManual, ActionType: "SEND_EMAIL"}
	if err := m.jobs.Create(ctx, &j); err != nil {
		t.Fatal(err)
	}
	if err := m.jobs.Delete(ctx, j.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.jobs.Get(ctx, j.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get deleted job err = %v, want ErrNotFound", err)
	}
	if err := m.jobs.Delete(ctx, j.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestCredentials(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	u := createUser(t, m, "ana@example.com")

	if _, err := m.creds.Get(ctx, u.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get before put err = %v, want ErrNotFound", err)
	}

	expiry := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	c := store.Credential{
		UserID:       u.ID,
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		Expiry:       &expiry,
	}
	if err := m.creds.Put(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := m.creds.Get(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "at-1" || got.RefreshToken != "rt-1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Expiry == nil || !got.Expiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", got.Expiry, expiry)
	}

	// Upsert replaces in place.
	c.AccessToken = "at-2"
	c.Expiry = nil
	if err := m.creds.Put(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err = m.creds.Get(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "at-2" || got.Expiry != nil {
		t.Errorf("upsert mismatch: %+v", got)
	}

	// Disconnect is idempotent.
	if err := m.creds.Delete(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.creds.Delete(ctx, u.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := m.creds.Get(ctx, u.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestExecutionLogs(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()
	u := createUser(t, m, "ana@example.com")

	j := store.Job{UserID: u.ID, Name: "logged", Trigger: store.TriggerManual, ActionType: "SEND_EMAIL"}
	if err := m.jobs.Create(ctx, &j); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := store.ExecutionRecord{
			JobID:      j.ID,
			Outcome:    store.OutcomeSuccess,
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
			Duration:   1500 * time.Millisecond,
		}
		if i == 2 {
			rec.Outcome = store.OutcomeFailure
			rec.Error = "smtp down"
		}
		if err := m.logs.Append(ctx, &rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if rec.ID == 0 {
			t.Fatal("append did not assign an ID")
		}
	}

	got, err := m.logs.ListByJob(ctx, j.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("list = %d records, want limit 2", len(got))
	}
	// Most recent first.
	if got[0].Outcome != store.OutcomeFailure || got[0].Error != "smtp down" {
		t.Errorf("first record = %+v, want the failure", got[0])
	}
	if got[0].Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v, want 1.5s", got[0].Duration)
	}
	if !got[0].ExecutedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("executed at = %v", got[0].ExecutedAt)
	}

	none, err := m.logs.ListByJob(ctx, 404, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("records for missing job = %d, want 0", len(none))
	}
}
