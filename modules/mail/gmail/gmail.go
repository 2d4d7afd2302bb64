package gmail

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/taskflowhq/taskflow/internal/core"
	"github.com/taskflowhq/taskflow/internal/mail"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ mail.Fetcher      = (*Client)(nil)
	_ mail.Sender       = (*Client)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
)

// Config holds the Gmail module configuration.
type Config struct {
	// BaseURL overrides the Gmail API endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`
}

// Module registers the Gmail client as both mail services.
type Module struct {
	config Config
	logger *slog.Logger
	client *Client
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "mail.gmail",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("gmail: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.client = NewClient(m.config.BaseURL)

	ctx.RegisterService("mail.fetcher", m.client)
	ctx.RegisterService("mail.sender", m.client)

	m.logger.Info("gmail module provisioned")
	return nil
}
