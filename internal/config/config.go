// Package config loads and manages quill configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, ANTHROPIC_API_KEY, etc.)
// 2. Config file path specified via --config flag
// 3. ~/.config/quill/config.yaml
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quill-ai/quill/internal/permission"
)

//go:embed providers_default.yaml
var defaultProvidersYAML []byte

// ProviderDefaults holds the default base URL and model for a provider.
type ProviderDefaults struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// LoadProviderDefaults parses the embedded defaults and merges any user
// overrides from ~/.config/quill/providers.yaml.
func LoadProviderDefaults() map[string]ProviderDefaults {
	defs := make(map[string]ProviderDefaults)
	_ = yaml.Unmarshal(defaultProvidersYAML, &defs)

	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".config", "quill", "providers.yaml")
		if data, err := os.ReadFile(userPath); err == nil {
			userDefs := make(map[string]ProviderDefaults)
			if yaml.Unmarshal(data, &userDefs) == nil {
				for name, ud := range userDefs {
					d := defs[name]
					if ud.BaseURL != "" {
						d.BaseURL = ud.BaseURL
					}
					if ud.DefaultModel != "" {
						d.DefaultModel = ud.DefaultModel
					}
					defs[name] = d
				}
			}
		}
	}
	return defs
}

// ProviderConfig holds configuration for a single provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// PermissionConfig holds the permission subsystem settings.
type PermissionConfig struct {
	// Mode: "default" | "acceptEdits" | "plan" | "bypassPermissions"
	Mode string `yaml:"mode"`

	// AutoApproveTools: tools approved without confirmation in any mode
	// (read-only tools never ask regardless of this list).
	AutoApproveTools []string `yaml:"auto_approve_tools"`

	// AllowedRules: pre-seeded auto-approval rules, same grammar as the
	// "don't ask again" choice produces (e.g. "Bash(git *)", "edit_file").
	AllowedRules []string `yaml:"allowed_rules"`

	// DeniedCommands: shell command prefixes blocked outright, even in
	// bypassPermissions mode.
	DeniedCommands []string `yaml:"denied_commands"`
}

// PolicySettings converts the config block into the permission package's
// settings type.
func (p PermissionConfig) PolicySettings() permission.PolicySettings {
	return permission.PolicySettings{
		Mode:             permission.Mode(p.Mode),
		AutoApproveTools: p.AutoApproveTools,
		AllowedRules:     p.AllowedRules,
		DeniedCommands:   p.DeniedCommands,
	}
}

// Config is the complete configuration structure for quill.
type Config struct {
	// Provider is the active provider name (e.g. "anthropic", "deepseek", "openai")
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Providers holds per-provider configuration.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	// Permission holds the permission subsystem settings.
	Permission PermissionConfig `yaml:"permission"`

	// SystemPrompt is a custom system prompt (empty uses default).
	SystemPrompt string `yaml:"system_prompt"`

	// MaxIterations is the max number of agent loop iterations.
	// 0 = unlimited (default). Loop exits when model stops calling tools.
	MaxIterations int `yaml:"max_iterations"`

	// ContextWindow overrides the provider's default context window size.
	// 0 = use provider default.
	ContextWindow int `yaml:"context_window"`

	// SessionDB overrides the session database path.
	// Empty = ~/.local/share/quill/sessions.db.
	SessionDB string `yaml:"session_db"`

	// PlainUI disables the full-screen TUI and uses line-mode output.
	PlainUI bool `yaml:"plain_ui"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:      "anthropic",
		MaxIterations: 0,
		Providers:     make(map[string]*ProviderConfig),
		Permission: PermissionConfig{
			Mode: string(permission.ModeDefault),
			DeniedCommands: []string{
				"rm -rf /",
				"sudo rm",
			},
		},
	}
}

// Load reads the config file and merges environment variable overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Determine config file path
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "quill", "config.yaml")
		}
	}

	// Read config file (use defaults if not found)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	return cfg, nil
}

// GetProviderConfig returns the config for the named provider, or an empty config if not found.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return &ProviderConfig{}
}

var (
	// KnownProviderBaseURLs maps well-known provider names to their base URLs.
	// Populated from providers_default.yaml (embedded) + user overrides.
	KnownProviderBaseURLs map[string]string

	// KnownProviderModels maps well-known provider names to their default models.
	// Populated from providers_default.yaml (embedded) + user overrides.
	KnownProviderModels map[string]string
)

func init() {
	defs := LoadProviderDefaults()
	KnownProviderBaseURLs = make(map[string]string, len(defs))
	KnownProviderModels = make(map[string]string, len(defs))
	for name, d := range defs {
		if d.BaseURL != "" {
			KnownProviderBaseURLs[name] = d.BaseURL
		}
		if d.DefaultModel != "" {
			KnownProviderModels[name] = d.DefaultModel
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Provider selection first, so generic keys land on the right provider.
	if v := os.Getenv("QUILL_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("QUILL_MODEL"); v != "" {
		cfg.Model = v
	}

	// Generic overrides
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		provider := cfg.Provider
		if cfg.Providers[provider] == nil {
			cfg.Providers[provider] = &ProviderConfig{}
		}
		cfg.Providers[provider].APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		provider := cfg.Provider
		if cfg.Providers[provider] == nil {
			cfg.Providers[provider] = &ProviderConfig{}
		}
		cfg.Providers[provider].BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}

	// Anthropic-specific
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		if cfg.Providers["anthropic"] == nil {
			cfg.Providers["anthropic"] = &ProviderConfig{}
		}
		cfg.Providers["anthropic"].APIKey = v
	}

	if v := os.Getenv("QUILL_PERMISSION_MODE"); v != "" {
		cfg.Permission.Mode = v
	}
}
