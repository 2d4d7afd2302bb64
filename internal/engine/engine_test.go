package engine

import (
	"context"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestModuleConfigure(t *testing.T) {
	t.Parallel()

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("max_concurrent: 3\nfetch_limit: 10\n"), &node); err != nil {
		t.Fatal(err)
	}

	m := &Module{}
	if err := m.Configure(&node); err != nil {
		t.Fatal(err)
	}
	if m.config.MaxConcurrent != 3 || m.config.FetchLimit != 10 {
		t.Errorf("config = %+v", m.config)
	}
}

func TestModuleValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"zero takes defaults", Config{}, false},
		{"explicit values", Config{MaxConcurrent: 2, FetchLimit: 5}, false},
		{"negative concurrency", Config{MaxConcurrent: -1}, true},
		{"negative fetch limit", Config{FetchLimit: -1}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &Module{config: tt.config}
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunnerBeforeStart(t *testing.T) {
	t.Parallel()

	r := &Runner{}
	if _, err := r.RunNow(context.Background(), 1); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
}

func TestRunnerRunNow(t *testing.T) {
	t.Parallel()

	users := newMemUsers(testUser())
	manual := reminderJob(5, 1)
	manual.Trigger = "MANUAL"
	manual.Active = false
	jobs := newMemJobs(manual)
	logs := &memLogs{}
	ex := newTestExecutor(t, users, jobs, logs, &fakeSender{})

	r := &Runner{}
	r.bind(jobs, ex, nil)

	res, err := r.RunNow(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != RunSucceeded {
		t.Fatalf("state = %v (err %v), want RunSucceeded for inactive manual job", res.State, res.Err)
	}

	if _, err := r.RunNow(context.Background(), 404); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}
