package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quill-ai/quill/internal/agent"
	"github.com/quill-ai/quill/internal/config"
	"github.com/quill-ai/quill/internal/permission"
	"github.com/quill-ai/quill/internal/session"
	"github.com/quill-ai/quill/internal/tools"
	"github.com/quill-ai/quill/internal/tui"
)

// runChat starts the interactive chat (REPL) mode.
func runChat() error {
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

	store := openStore(cfg)
	defer store.Close()

	sess := session.New()

	// Audit log is best effort: a read-only home directory should not
	// prevent the session from starting.
	var audit *agent.AuditLog
	if l, err := agent.NewAuditLog(sess.ID); err == nil {
		audit = l
		coordinator.SetObserver(audit)
		defer audit.Close()
	} else {
		fmt.Fprintf(os.Stderr, "warning: audit log disabled: %v\n", err)
	}

	if useTUI && !cfg.PlainUI {
		sessionID := sess.ID
		if len(sessionID) > 8 {
			sessionID = sessionID[:8]
		}
		tuiCfg := tui.TUIConfig{
			Version:     displayVersion(),
			Provider:    cfg.Provider,
			Model:       cfg.Model,
			SessionID:   sessionID,
			ShowWelcome: true,
		}

		program, tio := tui.NewProgram(coordinator, tuiCfg)
		coordinator.SetPresenter(tio.Present)
		executor.SetToolCanceller(tio)

		a := agent.NewWithSession(p, executor, cfg, tio, store, sess)
		a.SetAuditLog(audit)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// The agent runs beside the TUI event loop; AgentDone tells the
		// program to quit when the REPL exits.
		go func() {
			tio.AgentDone(a.Run(ctx))
		}()

		_, err := program.Run()
		cancel()
		return err
	}

	// Plain IO mode
	ui := tui.NewPlainIO(coordinator)
	coordinator.SetPresenter(ui.Present)

	a := agent.NewWithSession(p, executor, cfg, ui, store, sess)
	a.SetAuditLog(audit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return a.Run(ctx)
}

// buildExecutor assembles the tool registry, the policy, and the executor,
// and wires the permission coordinator in as the executor's decider.
func buildExecutor(cfg *config.Config, coordinator *permission.Coordinator) *tools.Executor {
	registry := tools.DefaultRegistry()
	policy := permission.NewPolicy(cfg.Permission.PolicySettings())
	executor := tools.NewExecutor(registry, policy)
	executor.SetDecider(coordinator)
	return executor
}

// openStore opens the SQLite session store, falling back to a null store
// when the database cannot be opened.
func openStore(cfg *config.Config) session.Store {
	dbPath := cfg.SessionDB
	if dbPath == "" {
		var err error
		dbPath, err = session.DefaultDBPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: session persistence disabled: %v\n", err)
			return session.NullStore{}
		}
	}
	store, err := session.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: session persistence disabled: %v\n", err)
		return session.NullStore{}
	}
	return store
}
