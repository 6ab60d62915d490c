// Package agent implements the interactive loop between the user, the
// LLM provider, and the permission-checked tool executor.
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quill-ai/quill/internal/config"
	"github.com/quill-ai/quill/internal/permission"
	"github.com/quill-ai/quill/internal/provider"
	"github.com/quill-ai/quill/internal/session"
	"github.com/quill-ai/quill/internal/tools"
	"github.com/quill-ai/quill/internal/tui"
)

const defaultSystemPrompt = `You are quill, a terminal coding assistant. You help the user read,
write, and modify code in the current working directory using your tools.

Rules:
- Prefer edit_file for modifying existing files; write_file is for new files.
- Use glob and grep to locate code before reading whole files.
- Run bash commands to build, test, or inspect the environment when needed.
- Mutating actions may require the user's confirmation. If the user denies an
  action, follow their instructions instead of retrying it.
- Use the question tool when you need a structured decision from the user.
- Be concise. Answer in plain text unless code is requested.`

// Agent orchestrates the interactive loop between user, LLM, and tools.
type Agent struct {
	provider     provider.Provider
	executor     *tools.Executor
	config       *config.Config
	session      *session.Session
	store        session.Store
	basePrompt   string // system prompt without identity suffix
	systemPrompt string
	io           tui.IO
	audit        *AuditLog
}

// New creates a new Agent with the given IO implementation.
// Pass tui.NewPlainIO for plain terminal mode.
func New(p provider.Provider, exec *tools.Executor, cfg *config.Config, ui tui.IO, store session.Store) *Agent {
	return NewWithSession(p, exec, cfg, ui, store, session.New())
}

// NewWithSession creates a new Agent with an existing session.
func NewWithSession(p provider.Provider, exec *tools.Executor, cfg *config.Config, ui tui.IO, store session.Store, sess *session.Session) *Agent {
	base := defaultSystemPrompt
	if cfg.SystemPrompt != "" {
		base = cfg.SystemPrompt // full override from config
	}

	// Append project context from QUILL.md, if present.
	if ctx := loadProjectContext(); ctx != "" {
		base += ctx
	}

	a := &Agent{
		provider:   p,
		executor:   exec,
		config:     cfg,
		session:    sess,
		store:      store,
		basePrompt: base,
		io:         ui,
	}
	a.rebuildSystemPrompt()
	return a
}

// SetAuditLog injects the permission decision log (shown via /audit).
// The log is registered as the coordinator's observer at startup.
func (a *Agent) SetAuditLog(l *AuditLog) {
	a.audit = l
}

// loadProjectContext reads QUILL.md from the working directory so projects
// can carry their own standing instructions.
func loadProjectContext() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(cwd, "QUILL.md"))
	if err != nil || len(data) == 0 {
		return ""
	}
	return "\n\n<project_context>\n" + strings.TrimSpace(string(data)) + "\n</project_context>"
}

// rebuildSystemPrompt appends a dynamic identity suffix to basePrompt.
// Call after changing the model.
func (a *Agent) rebuildSystemPrompt() {
	model := a.config.Model
	if model == "" {
		model = a.provider.DefaultModel()
	}
	a.systemPrompt = a.basePrompt + fmt.Sprintf(
		"\n\nYou are powered by %s (provider: %s). "+
			"When asked about your identity, state these facts. Never claim to be a different model.",
		model, a.provider.Name())
}

// Run starts the interactive REPL loop.
func (a *Agent) Run(ctx context.Context) error {
	for {
		input, err := a.io.ReadInput()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if input == "" {
			continue
		}

		// Slash commands are intercepted before sending to LLM.
		if strings.HasPrefix(input, "/") {
			handled, shouldQuit := a.handleSlashCommand(input)
			if shouldQuit {
				return nil
			}
			if handled {
				continue
			}
		}

		a.io.UserMessage(input)
		a.session.AddMessage(provider.Message{
			Role: provider.RoleUser,
			Content: []provider.Content{{
				Type: provider.ContentTypeText,
				Text: input,
			}},
		})

		if err := a.runAgentLoop(ctx); err != nil {
			if ctx.Err() != nil {
				a.io.SystemMessage("\nInterrupted.")
				_ = a.store.Save(a.session)
				return ctx.Err()
			}
			a.io.Error(err.Error())
		}
	}

	_ = a.store.Save(a.session)
	return nil
}

// RunOnce executes a single prompt and exits (non-interactive mode).
func (a *Agent) RunOnce(ctx context.Context, prompt string) error {
	a.io.UserMessage(prompt)
	a.session.AddMessage(provider.Message{
		Role: provider.RoleUser,
		Content: []provider.Content{{
			Type: provider.ContentTypeText,
			Text: prompt,
		}},
	})
	return a.runAgentLoop(ctx)
}

// handleSlashCommand processes built-in commands.
// Returns (handled, shouldQuit).
func (a *Agent) handleSlashCommand(input string) (bool, bool) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		a.io.SystemMessage("Bye.")
		_ = a.store.Save(a.session)
		return true, true
	case "/clear":
		a.session.Clear()
		a.io.SystemMessage("Session cleared.")
		return true, false
	case "/history":
		a.io.SystemMessage(formatHistory(a.session.Messages))
		return true, false
	case "/cost":
		a.io.SystemMessage(fmt.Sprintf("Tokens used: %d (prompt %d, completion %d)",
			a.session.TokensUsed, a.session.PromptTokens, a.session.CompletionTokens))
		return true, false
	case "/help":
		return a.handleHelp(), false
	case "/model":
		return a.handleModel(arg), false
	case "/config":
		return a.handleConfig(), false
	case "/mode":
		return a.handleMode(arg), false
	case "/plan":
		if a.planMode() {
			return a.handleMode(string(permission.ModeDefault)), false
		}
		return a.handleMode(string(permission.ModePlan)), false
	case "/rules":
		return a.handleRules(), false
	case "/audit":
		return a.handleAudit(arg), false
	case "/save":
		return a.handleSave(), false
	case "/sessions":
		return a.handleSessions(), false
	case "/resume":
		return a.handleResume(arg), false
	default:
		return false, false
	}
}

func (a *Agent) handleHelp() bool {
	help := `Available commands:
  /help              Show this help message
  /model <name>      Switch model (e.g. /model claude-haiku-4-5-20251001)
  /config            Show current configuration
  /mode [name]       Show or set permission mode (default, acceptEdits, plan, bypassPermissions)
  /plan              Toggle plan mode (read-only analysis)
  /rules             Show active auto-approval rules
  /audit [n]         Show recent permission decisions
  /save              Save current session to disk
  /sessions          List saved sessions
  /resume <id>       Resume a saved session (use short ID prefix)
  /history           Show message history
  /cost              Show token usage
  /clear             Clear message history
  /quit              Save and exit`
	a.io.SystemMessage(help)
	return true
}

func (a *Agent) handleModel(name string) bool {
	if name == "" {
		a.io.SystemMessage(fmt.Sprintf("Current model: %s\nUsage: /model <name>", a.config.Model))
		return true
	}
	old := a.config.Model
	a.config.Model = name
	if old == "" {
		old = a.provider.DefaultModel()
	}
	a.rebuildSystemPrompt()
	a.io.SystemMessage(fmt.Sprintf("Model switched: %s -> %s", old, name))
	return true
}

func (a *Agent) handleConfig() bool {
	model := a.config.Model
	if model == "" {
		model = a.provider.DefaultModel()
	}
	maxIterDisplay := "unlimited"
	if a.config.MaxIterations > 0 {
		maxIterDisplay = fmt.Sprintf("%d", a.config.MaxIterations)
	}
	info := fmt.Sprintf(`Current configuration:
  Provider:        %s
  Model:           %s
  Context window:  %d
  Max iterations:  %s
  Permission mode: %s
  Session ID:      %s
  Messages:        %d
  Tokens used:     %d`,
		a.provider.Name(),
		model,
		a.provider.ContextWindow(),
		maxIterDisplay,
		a.executor.Policy().Mode(),
		a.session.ID,
		len(a.session.Messages),
		a.session.TokensUsed,
	)
	a.io.SystemMessage(info)
	return true
}

var validModes = map[permission.Mode]bool{
	permission.ModeDefault:     true,
	permission.ModeAcceptEdits: true,
	permission.ModePlan:        true,
	permission.ModeBypass:      true,
}

func (a *Agent) handleMode(arg string) bool {
	if arg == "" {
		a.io.SystemMessage(fmt.Sprintf(
			"Permission mode: %s\nUsage: /mode <default|acceptEdits|plan|bypassPermissions>",
			a.executor.Policy().Mode()))
		return true
	}

	mode := permission.Mode(arg)
	if !validModes[mode] {
		a.io.Error(fmt.Sprintf("Unknown mode %q. Valid modes: default, acceptEdits, plan, bypassPermissions", arg))
		return true
	}

	a.executor.Policy().SetMode(mode)
	a.io.SetMode(mode)
	switch mode {
	case permission.ModePlan:
		a.io.SystemMessage("Plan mode ON. The agent will analyze and propose, not execute.")
	case permission.ModeAcceptEdits:
		a.io.SystemMessage("Accept-edits mode: file edits are auto-approved for this session.")
	case permission.ModeBypass:
		a.io.SystemMessage("Bypass mode: ALL tool calls are auto-approved. Use with care.")
	default:
		a.io.SystemMessage("Default mode: mutating tool calls require confirmation.")
	}
	return true
}

func (a *Agent) handleRules() bool {
	rules := a.executor.Policy().Rules()
	if len(rules) == 0 {
		a.io.SystemMessage("No auto-approval rules active.\nRules are added when you choose \"don't ask again\" on a confirmation.")
		return true
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Auto-approval rules (%d):\n", len(rules)))
	for _, r := range rules {
		sb.WriteString("  " + r + "\n")
	}
	a.io.SystemMessage(strings.TrimRight(sb.String(), "\n"))
	return true
}

func (a *Agent) handleAudit(arg string) bool {
	if a.audit == nil {
		a.io.SystemMessage("Audit logging not available.")
		return true
	}
	n := 20
	if arg != "" {
		if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 {
			n = parsed
		}
	}
	entries, err := a.audit.ReadRecent(n)
	if err != nil {
		a.io.Error("Failed to read audit log: " + err.Error())
		return true
	}
	a.io.SystemMessage(FormatAuditEntries(entries))
	return true
}

func (a *Agent) handleSave() bool {
	if err := a.store.Save(a.session); err != nil {
		a.io.Error("Save failed: " + err.Error())
		return true
	}
	a.io.SystemMessage(fmt.Sprintf("Session saved: %s (%d messages)",
		a.session.ID[:8], len(a.session.Messages)))
	return true
}

func (a *Agent) handleSessions() bool {
	infos, err := a.store.List()
	if err != nil {
		a.io.Error("Failed to list sessions: " + err.Error())
		return true
	}
	if len(infos) == 0 {
		a.io.SystemMessage("No saved sessions.")
		return true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Saved sessions (%d):\n", len(infos)))
	for i, info := range infos {
		if i >= 20 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(infos)-20))
			break
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %d msgs  %d tokens\n",
			info.ID[:8],
			info.CreatedAt.Format("2006-01-02 15:04"),
			info.Messages,
			info.Tokens,
		))
	}
	sb.WriteString("Use /resume <id> to restore a session.")
	a.io.SystemMessage(sb.String())
	return true
}

func (a *Agent) handleResume(idPrefix string) bool {
	if idPrefix == "" {
		a.io.SystemMessage("Usage: /resume <session-id-prefix>")
		return true
	}

	infos, err := a.store.List()
	if err != nil {
		a.io.Error("Failed to list sessions: " + err.Error())
		return true
	}

	var matches []session.SessionInfo
	for _, info := range infos {
		if strings.HasPrefix(info.ID, idPrefix) {
			matches = append(matches, info)
		}
	}

	switch len(matches) {
	case 0:
		a.io.Error(fmt.Sprintf("No session found matching prefix %q", idPrefix))
		return true
	case 1:
		// Unique match, load it.
	default:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Ambiguous prefix %q matches %d sessions:\n", idPrefix, len(matches)))
		for _, m := range matches {
			sb.WriteString(fmt.Sprintf("  %s  %s\n", m.ID[:12], m.CreatedAt.Format("2006-01-02 15:04")))
		}
		sb.WriteString("Provide a longer prefix.")
		a.io.SystemMessage(sb.String())
		return true
	}

	loaded, err := a.store.Load(matches[0].ID)
	if err != nil {
		a.io.Error("Failed to load session: " + err.Error())
		return true
	}

	a.session = loaded
	a.io.SystemMessage(fmt.Sprintf("Resumed session %s (%d messages, %d tokens)",
		loaded.ID[:8], len(loaded.Messages), loaded.TokensUsed))
	return true
}

func formatHistory(messages []provider.Message) string {
	if len(messages) == 0 {
		return "No history."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== History (%d messages) ===\n", len(messages))
	for i, msg := range messages {
		fmt.Fprintf(&sb, "[%d] %s:\n", i, msg.Role)
		for _, c := range msg.Content {
			switch c.Type {
			case provider.ContentTypeText:
				fmt.Fprintf(&sb, "    text: %s\n", truncate(c.Text, 100))
			case provider.ContentTypeToolUse:
				fmt.Fprintf(&sb, "    tool_use: %s(%s)\n", c.ToolName, truncate(string(c.ToolInput), 60))
			case provider.ContentTypeToolResult:
				status := "ok"
				if c.IsError {
					status = "err"
				}
				fmt.Fprintf(&sb, "    tool_result[%s]: %s\n", status, truncate(c.ToolResult, 60))
			}
		}
	}
	sb.WriteString("===")
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
