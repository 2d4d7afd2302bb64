package openai

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taskflowhq/taskflow/internal/core"
	"github.com/taskflowhq/taskflow/internal/summary"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ summary.Summarizer = (*Client)(nil)
	_ core.Configurable  = (*Module)(nil)
	_ core.Provisioner   = (*Module)(nil)
	_ core.Validator     = (*Module)(nil)
)

// Config holds the OpenAI summary module configuration.
type Config struct {
	// APIKey falls back to the OPENAI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`

	// Model defaults to gpt-4o-mini.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint, for tests or proxies.
	BaseURL string `yaml:"base_url"`
}

// Module registers the OpenAI client as the summarizer service. The
// module is optional; without it recaps fall back to raw snippets.
type Module struct {
	config Config
	logger *slog.Logger
	client *Client
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "summary.openai",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("openai: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	if m.config.APIKey == "" {
		m.config.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	m.client = NewClient(m.config.APIKey, m.config.BaseURL, m.config.Model)
	ctx.RegisterService("summary.summarizer", m.client)

	m.logger.Info("openai summary provisioned", "model", m.client.model)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.APIKey == "" {
		return fmt.Errorf("openai: api_key is required (or set OPENAI_API_KEY)")
	}
	return nil
}
