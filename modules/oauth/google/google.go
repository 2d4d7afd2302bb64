package google

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taskflowhq/taskflow/internal/core"
	"github.com/taskflowhq/taskflow/internal/credential"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ credential.Issuer = (*Client)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Config holds the Google OAuth module configuration. Secrets support
// the usual ${VAR} expansion from the config loader.
type Config struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`

	// Endpoint overrides, mainly for tests.
	AuthURL     string `yaml:"auth_url"`
	TokenURL    string `yaml:"token_url"`
	UserinfoURL string `yaml:"userinfo_url"`
}

// Module wires the Google OAuth client into the service registry as the
// credential issuer and the connect-flow client.
type Module struct {
	config Config
	logger *slog.Logger
	client *Client
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "oauth.google",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("google: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	if m.config.ClientID == "" {
		m.config.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if m.config.ClientSecret == "" {
		m.config.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}

	m.client = NewClient(
		m.config.ClientID,
		m.config.ClientSecret,
		m.config.RedirectURL,
		m.config.Scopes,
		Endpoints{
			Auth:     m.config.AuthURL,
			Token:    m.config.TokenURL,
			Userinfo: m.config.UserinfoURL,
		},
	)

	ctx.RegisterService("oauth.issuer", m.client)
	ctx.RegisterService("oauth.connect", m.client)

	m.logger.Info("google oauth provisioned", "redirect_url", m.config.RedirectURL)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.ClientID == "" {
		return fmt.Errorf("google: client_id is required (or set GOOGLE_CLIENT_ID)")
	}
	if m.config.ClientSecret == "" {
		return fmt.Errorf("google: client_secret is required (or set GOOGLE_CLIENT_SECRET)")
	}
	if m.config.RedirectURL == "" {
		return fmt.Errorf("google: redirect_url is required")
	}
	return nil
}
