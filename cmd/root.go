// Package cmd wires configuration, provider, tools, the permission
// coordinator, and the UI into the quill CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quill-ai/quill/internal/config"
	"github.com/quill-ai/quill/internal/permission"
	"github.com/quill-ai/quill/internal/provider"
)

var (
	cfgFile       string
	modelFlag     string
	providerFlag  string
	permModeFlag  string
	maxTurnsFlag  int
	useTUI        bool
	dangerousSkip bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "AI-powered coding assistant",
		Long:  "quill is an interactive AI coding agent with permission-gated tool execution.",
		// Running quill with no subcommand starts chat mode.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Default TUI on when stdout is a terminal and --tui was not explicitly set.
			if !cmd.Root().PersistentFlags().Changed("tui") && term.IsTerminal(int(os.Stdout.Fd())) {
				useTUI = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/quill/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override provider")
	rootCmd.PersistentFlags().StringVar(&permModeFlag, "permission-mode", "", "permission mode: default, acceptEdits, plan, bypassPermissions")
	rootCmd.PersistentFlags().IntVar(&maxTurnsFlag, "max-turns", 0, "max agent loop iterations (0=unlimited)")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use full-screen TUI mode (default: auto-detect terminal)")
	rootCmd.PersistentFlags().BoolVar(&dangerousSkip, "dangerously-skip-permissions", false, "auto-approve every tool call (same as --permission-mode bypassPermissions)")

	// Subcommands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("quill %s (commit %s, built %s)\n", appVersion, appCommit, appDate)
		},
	}
}

// displayVersion returns a formatted version string for the TUI welcome page,
// e.g. "v0.3.1 (abc1234)".
func displayVersion() string {
	v := "v" + appVersion
	if appCommit != "" && appCommit != "none" {
		v += " (" + appCommit + ")"
	}
	return v
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if permModeFlag != "" {
		cfg.Permission.Mode = permModeFlag
	}
	if dangerousSkip {
		cfg.Permission.Mode = string(permission.ModeBypass)
	}
	if maxTurnsFlag > 0 {
		cfg.MaxIterations = maxTurnsFlag
	}

	return cfg
}

// buildProvider creates a Provider instance based on configuration.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)

	apiKey := pc.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY (or ANTHROPIC_API_KEY)",
			name, name,
		)
	}

	// Determine model: CLI flag > config file > provider defaults YAML
	model := cfg.Model
	if pc.Model != "" && model == "" {
		model = pc.Model
	}
	if model == "" {
		if m, ok := config.KnownProviderModels[name]; ok {
			model = m
		}
	}

	switch name {
	case "anthropic":
		return provider.NewAnthropicProvider(apiKey, model), nil
	default:
		// All other providers use an OpenAI-compatible API
		baseURL := pc.BaseURL
		if baseURL == "" {
			if u, ok := config.KnownProviderBaseURLs[name]; ok {
				baseURL = u
			} else if name != "openai" {
				return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
			}
		}
		return provider.NewOpenAIProvider(apiKey, baseURL, model), nil
	}
}
