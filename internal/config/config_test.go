package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quill-ai/quill/internal/permission"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "anthropic" {
		t.Errorf("expected default provider 'anthropic', got %q", cfg.Provider)
	}
	if cfg.MaxIterations != 0 {
		t.Errorf("expected default max_iterations 0 (unlimited), got %d", cfg.MaxIterations)
	}
	if cfg.Permission.Mode != string(permission.ModeDefault) {
		t.Errorf("expected default permission mode, got %q", cfg.Permission.Mode)
	}
	if len(cfg.Permission.DeniedCommands) == 0 {
		t.Error("expected default denied commands")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.Provider)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
provider: deepseek
model: deepseek-chat
max_iterations: 25
providers:
  deepseek:
    api_key: file-key
permission:
  mode: acceptEdits
  allowed_rules:
    - "Bash(git *)"
  denied_commands:
    - "shutdown"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LLM_MODEL", "")
	t.Setenv("QUILL_PROVIDER", "")
	t.Setenv("QUILL_MODEL", "")
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("QUILL_PERMISSION_MODE", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "deepseek" || cfg.Model != "deepseek-chat" {
		t.Errorf("provider/model = %q/%q", cfg.Provider, cfg.Model)
	}
	if cfg.MaxIterations != 25 {
		t.Errorf("max_iterations = %d", cfg.MaxIterations)
	}
	// Env var beats the file for the active provider's key.
	if got := cfg.GetProviderConfig("deepseek").APIKey; got != "env-key" {
		t.Errorf("api key = %q, want env override", got)
	}
	if cfg.Permission.Mode != "acceptEdits" {
		t.Errorf("permission mode = %q", cfg.Permission.Mode)
	}

	settings := cfg.Permission.PolicySettings()
	if settings.Mode != permission.ModeAcceptEdits {
		t.Errorf("policy mode = %q", settings.Mode)
	}
	if len(settings.AllowedRules) != 1 || settings.AllowedRules[0] != "Bash(git *)" {
		t.Errorf("allowed rules = %v", settings.AllowedRules)
	}
	if len(settings.DeniedCommands) != 1 || settings.DeniedCommands[0] != "shutdown" {
		t.Errorf("denied commands = %v", settings.DeniedCommands)
	}
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("provider: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestProviderDefaults_Embedded(t *testing.T) {
	defs := LoadProviderDefaults()
	if defs["deepseek"].BaseURL == "" {
		t.Error("deepseek base URL missing from embedded defaults")
	}
	if defs["anthropic"].DefaultModel == "" {
		t.Error("anthropic default model missing from embedded defaults")
	}
}

func TestGetProviderConfig_Unknown(t *testing.T) {
	cfg := DefaultConfig()
	pc := cfg.GetProviderConfig("nope")
	if pc == nil || pc.APIKey != "" {
		t.Errorf("unknown provider should yield empty config, got %+v", pc)
	}
}
