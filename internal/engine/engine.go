// Package engine implements the automation core: cron matching, action
// dispatch, job execution, and the per-minute scheduler pass.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/taskflowhq/taskflow/internal/core"
	"github.com/taskflowhq/taskflow/internal/credential"
	"github.com/taskflowhq/taskflow/internal/cron"
	"github.com/taskflowhq/taskflow/internal/mail"
	"github.com/taskflowhq/taskflow/internal/store"
	"github.com/taskflowhq/taskflow/internal/summary"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config tunes the scheduler pass.
type Config struct {
	// MaxConcurrent bounds how many due jobs run at once per pass.
	MaxConcurrent int `yaml:"max_concurrent"`

	// FetchLimit bounds how many messages one recap may fetch.
	FetchLimit int `yaml:"fetch_limit"`
}

func (c *Config) defaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.FetchLimit == 0 {
		c.FetchLimit = defaultFetchLimit
	}
}

// Module wires the scheduler loop into the application lifecycle. It
// resolves its collaborators from the service registry at start, after
// every module has provisioned.
type Module struct {
	config    Config
	logger    *slog.Logger
	appCtx    *core.AppContext
	runner    *Runner
	scheduler *cron.Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "engine.scheduler",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("engine: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. The runner is registered here,
// before start, so other modules can resolve it during their own start.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	m.appCtx = ctx
	m.runner = &Runner{}
	ctx.RegisterService("engine.runner", m.runner)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.MaxConcurrent < 0 {
		return fmt.Errorf("engine: max_concurrent must not be negative")
	}
	if m.config.FetchLimit < 0 {
		return fmt.Errorf("engine: fetch_limit must not be negative")
	}
	return nil
}

// Start implements core.Starter. It resolves the store, credential,
// mail, and summary services, assembles the execution pipeline, and
// starts the per-minute scan.
func (m *Module) Start() error {
	users, err := resolve[store.Users](m.appCtx, "store.users")
	if err != nil {
		return err
	}
	jobs, err := resolve[store.Jobs](m.appCtx, "store.jobs")
	if err != nil {
		return err
	}
	creds, err := resolve[store.Credentials](m.appCtx, "store.credentials")
	if err != nil {
		return err
	}
	logs, err := resolve[store.ExecutionLogs](m.appCtx, "store.logs")
	if err != nil {
		return err
	}
	issuer, err := resolve[credential.Issuer](m.appCtx, "oauth.issuer")
	if err != nil {
		return err
	}
	fetcher, err := resolve[mail.Fetcher](m.appCtx, "mail.fetcher")
	if err != nil {
		return err
	}
	sender, err := resolve[mail.Sender](m.appCtx, "mail.sender")
	if err != nil {
		return err
	}

	// Summaries are optional; without the module, recaps keep snippets.
	var summarizer summary.Summarizer
	if svc, ok := m.appCtx.Service("summary.summarizer"); ok {
		s, ok := svc.(summary.Summarizer)
		if !ok {
			return fmt.Errorf("engine: service summary.summarizer has unexpected type %T", svc)
		}
		summarizer = s
	}

	manager := credential.NewManager(creds, issuer, m.logger)
	dispatcher := NewDispatcher(manager, fetcher, sender, summarizer, m.logger, m.config.FetchLimit)
	executor := NewExecutor(users, jobs, logs, manager, dispatcher, m.logger)
	metrics := NewMetrics(prometheus.DefaultRegisterer, m.logger)
	loop := NewLoop(jobs, executor, metrics, m.logger, m.config.MaxConcurrent)

	m.runner.bind(jobs, executor, metrics)

	m.scheduler = cron.NewScheduler(m.logger)
	if err := m.scheduler.RegisterJob(loop); err != nil {
		return err
	}
	if err := m.scheduler.Start(); err != nil {
		return err
	}

	m.logger.Info("engine started",
		"max_concurrent", m.config.MaxConcurrent,
		"summaries", summarizer != nil,
	)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler != nil {
		return m.scheduler.Stop(ctx)
	}
	return nil
}

// resolve looks up a named service and asserts its type.
func resolve[T any](ctx *core.AppContext, name string) (T, error) {
	var zero T
	svc, ok := ctx.Service(name)
	if !ok {
		return zero, fmt.Errorf("engine: required service %q not registered", name)
	}
	t, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("engine: service %q has unexpected type %T", name, svc)
	}
	return t, nil
}
