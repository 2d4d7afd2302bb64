// Package gateway provides the HTTP surface: job management, the Google
// connect flow, health, status, and Prometheus metrics. It binds to
// loopback by default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskflowhq/taskflow/internal/core"
	"github.com/taskflowhq/taskflow/internal/credential"
	"github.com/taskflowhq/taskflow/internal/engine"
	"github.com/taskflowhq/taskflow/internal/store"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// JobRunner triggers an immediate job run. Implemented by the engine's
// runner service.
type JobRunner interface {
	RunNow(ctx context.Context, jobID int64) (engine.JobResult, error)
}

// ConnectClient drives the provider's OAuth consent flow. Implemented
// by the Google OAuth client.
type ConnectClient interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (credential.Token, error)
	UserEmail(ctx context.Context, accessToken string) (string, error)
}

// Gateway is the HTTP gateway module. It is a leaf module — nothing
// imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	states    *stateStore
	startedAt time.Time

	// Resolved at Start() via the service registry.
	users   store.Users
	jobs    store.Jobs
	creds   store.Credentials
	logs    store.ExecutionLogs
	runner  JobRunner
	connect ConnectClient
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = &Metrics{}
	g.states = newStateStore(stateTTL)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the
// service registry and starts the HTTP server.
func (g *Gateway) Start() error {
	var err error
	if g.users, err = resolveAs[store.Users](g.appCtx, "store.users"); err != nil {
		return err
	}
	if g.jobs, err = resolveAs[store.Jobs](g.appCtx, "store.jobs"); err != nil {
		return err
	}
	if g.creds, err = resolveAs[store.Credentials](g.appCtx, "store.credentials"); err != nil {
		return err
	}
	if g.logs, err = resolveAs[store.ExecutionLogs](g.appCtx, "store.logs"); err != nil {
		return err
	}
	if g.runner, err = resolveAs[JobRunner](g.appCtx, "engine.runner"); err != nil {
		return err
	}
	if g.connect, err = resolveAs[ConnectClient](g.appCtx, "oauth.connect"); err != nil {
		return err
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// resolveAs looks up a named service and asserts its type.
func resolveAs[T any](ctx *core.AppContext, name string) (T, error) {
	var zero T
	svc, ok := ctx.Service(name)
	if !ok {
		return zero, fmt.Errorf("gateway: required service %q not registered", name)
	}
	t, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("gateway: service %q has unexpected type %T", name, svc)
	}
	return t, nil
}
