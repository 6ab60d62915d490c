package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/permission"
	"github.com/quill-ai/quill/internal/session"
	"github.com/quill-ai/quill/internal/tui"
)

func newRunCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single prompt non-interactively",
		Example: `  quill run -P "read main.go and tell me what it does"
  quill run --prompt "list all Go files"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt / -P is required")
			}
			return runOnce(prompt)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "P", "", "the prompt to execute")
	cmd.MarkFlagRequired("prompt")

	return cmd
}

// runOnce executes a single prompt and exits. Always line-mode: prompts for
// confirmation on stdin when a tool call needs it.
func runOnce(prompt string) error {
	cfg := initConfig()

	p, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Model == "" {
		cfg.Model = p.DefaultModel()
	}

	coordinator := permission.NewCoordinator()
	executor := buildExecutor(cfg, coordinator)

	ui := tui.NewPlainIO(coordinator)
	coordinator.SetPresenter(ui.Present)

	// One-shot runs are not persisted.
	a := agent.New(p, executor, cfg, ui, session.NullStore{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return a.RunOnce(ctx, prompt)
}
