package permission

import (
	"strings"
	"sync"
)

// Verdict is the outcome of a policy check, before any operator
// interaction: proceed, refuse, or ask the operator.
type Verdict int

const (
	VerdictAllow   Verdict = iota // automatically allowed
	VerdictDeny                   // blocked outright
	VerdictConfirm                // requires operator confirmation
)

// editToolNames are auto-approved while the mode is acceptEdits.
var editToolNames = map[string]bool{
	"write_file": true,
	"edit_file":  true,
}

// commandFamilies are command heads common enough that an auto-approval
// rule should cover the whole family (prefix match) rather than one exact
// invocation.
var commandFamilies = map[string]bool{
	"git": true, "go": true, "npm": true, "pnpm": true, "yarn": true,
	"cargo": true, "docker": true, "kubectl": true, "make": true,
	"pip": true, "pip3": true, "uv": true,
}

// Policy decides whether a tool call may proceed without asking the
// operator. It accumulates rules during the session (the "don't ask
// again" choice) and tracks the engine-wide permission mode.
type Policy struct {
	mu               sync.Mutex
	mode             Mode
	autoApproveTools map[string]bool
	rules            []string
	deniedCommands   []string
}

// PolicySettings is the config-sourced portion of a policy.
type PolicySettings struct {
	Mode             Mode
	AutoApproveTools []string
	AllowedRules     []string
	DeniedCommands   []string
}

// NewPolicy creates a policy from settings. An empty mode means default.
func NewPolicy(s PolicySettings) *Policy {
	approve := make(map[string]bool, len(s.AutoApproveTools))
	for _, name := range s.AutoApproveTools {
		approve[name] = true
	}
	mode := s.Mode
	if mode == "" {
		mode = ModeDefault
	}
	return &Policy{
		mode:             mode,
		autoApproveTools: approve,
		rules:            append([]string(nil), s.AllowedRules...),
		deniedCommands:   append([]string(nil), s.DeniedCommands...),
	}
}

// Mode returns the current permission mode.
func (p *Policy) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode switches the permission mode (driven by Decisions carrying
// newPermissionMode).
func (p *Policy) SetMode(m Mode) {
	if m == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
}

// AddRule persists an auto-approval rule for the rest of the session
// (driven by Decisions carrying newPermissionRule).
func (p *Policy) AddRule(rule string) {
	if rule == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.rules {
		if r == rule {
			return
		}
	}
	p.rules = append(p.rules, rule)
}

// Rules returns a copy of the active rules.
func (p *Policy) Rules() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.rules...)
}

// Check decides whether a tool call proceeds, is blocked, or needs the
// operator. readOnly comes from the tool's own declaration; command is
// the shell command for the shell tool (empty otherwise).
func (p *Policy) Check(toolName string, readOnly bool, command string) Verdict {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Denied commands always win, regardless of mode.
	if toolName == ShellToolName {
		cmd := strings.TrimSpace(command)
		for _, denied := range p.deniedCommands {
			if strings.HasPrefix(cmd, denied) {
				return VerdictDeny
			}
		}
	}

	if readOnly {
		return VerdictAllow
	}
	if p.mode == ModeBypass {
		return VerdictAllow
	}

	// Leaving plan mode is itself a confirmation; every other mutating
	// tool is blocked while planning.
	if toolName == PlanExitToolName {
		return VerdictConfirm
	}
	if p.mode == ModePlan {
		return VerdictDeny
	}

	if p.autoApproveTools[toolName] {
		return VerdictAllow
	}
	if p.mode == ModeAcceptEdits && editToolNames[toolName] {
		return VerdictAllow
	}

	for _, rule := range p.rules {
		if MatchRule(rule, toolName, command) {
			return VerdictAllow
		}
	}
	return VerdictConfirm
}

// MatchRule reports whether a rule covers a tool call. The grammar is
// either a bare tool name, or "Bash(arg)" where a trailing '*' makes arg
// a prefix match on the command and an exact match otherwise.
func MatchRule(rule, toolName, command string) bool {
	if arg, ok := parseBashRule(rule); ok {
		if toolName != ShellToolName {
			return false
		}
		cmd := strings.TrimSpace(command)
		if strings.HasSuffix(arg, "*") {
			return strings.HasPrefix(cmd, strings.TrimSuffix(arg, "*"))
		}
		return cmd == arg
	}
	return rule == toolName
}

func parseBashRule(rule string) (string, bool) {
	if !strings.HasPrefix(rule, "Bash(") || !strings.HasSuffix(rule, ")") {
		return "", false
	}
	return rule[len("Bash(") : len(rule)-1], true
}

// CommandRule builds the auto-approval rule for a shell command: a prefix
// rule when a suggested prefix is available, otherwise the exact command.
func CommandRule(suggestedPrefix, command string) string {
	if suggestedPrefix != "" {
		return "Bash(" + suggestedPrefix + "*)"
	}
	return "Bash(" + command + ")"
}

// CommandPrefix derives the suggested auto-approval prefix for a command.
// Only well-known multi-word command families get a prefix; anything else
// falls back to an exact-command rule.
func CommandPrefix(command string) string {
	fields := strings.Fields(command)
	if len(fields) < 2 {
		return ""
	}
	if commandFamilies[fields[0]] {
		return fields[0] + " "
	}
	return ""
}
