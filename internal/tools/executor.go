package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quill-ai/quill/internal/permission"
)

// Decider is the executor's handle to the permission coordinator. Requests
// block until the operator decides; concurrent callers are queued FIFO and
// shown one at a time.
type Decider interface {
	Request(ctx context.Context, a permission.Ask) (permission.Decision, error)
}

// ToolCanceller lets the UI layer register a cancel function for the
// currently running tool, enabling Esc-to-cancel.
type ToolCanceller interface {
	SetToolCancel(cancel context.CancelFunc)
	ClearToolCancel()
}

// LoopCanceller lets the UI layer cancel the whole agent turn, not just
// the running tool. The agent loop registers its per-turn cancel here.
type LoopCanceller interface {
	SetLoopCancel(cancel context.CancelFunc)
	ClearLoopCancel()
}

// Executor runs tool calls behind the permission policy and the operator
// confirmation flow.
type Executor struct {
	registry       *Registry
	policy         *permission.Policy
	decider        Decider
	toolCanceller  ToolCanceller
	defaultTimeout time.Duration
}

// NewExecutor creates a tool executor.
func NewExecutor(registry *Registry, policy *permission.Policy) *Executor {
	return &Executor{
		registry:       registry,
		policy:         policy,
		defaultTimeout: 300 * time.Second,
	}
}

// Registry returns the underlying tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Policy returns the underlying permission policy.
func (e *Executor) Policy() *permission.Policy {
	return e.policy
}

// SetDecider injects the permission coordinator handle. Tools that drive
// their own interaction (the question tool) receive it too.
func (e *Executor) SetDecider(d Decider) {
	e.decider = d
	if qt, ok := e.registry.Get("question"); ok {
		if q, ok := qt.(*QuestionTool); ok {
			q.SetDecider(d)
		}
	}
}

// SetToolCanceller injects the UI-layer cancel bridge so that Esc can
// cancel the currently running tool.
func (e *Executor) SetToolCanceller(tc ToolCanceller) {
	e.toolCanceller = tc
}

// Execute runs a single tool call: policy check, operator confirmation if
// needed, then the tool itself under a timeout.
func (e *Executor) Execute(ctx context.Context, name string, params json.RawMessage) ToolResult {
	tool, ok := e.registry.Get(name)
	if !ok {
		return ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}
	}

	// The turn may already be cancelled (Esc during streaming).
	if ctx.Err() == context.Canceled {
		return cancelledResult()
	}

	command := commandParam(name, params)

	switch e.policy.Check(name, tool.IsReadOnly(), command) {
	case permission.VerdictDeny:
		// Policy denial, not user cancellation: the model sees the reason
		// and adjusts. The loop continues.
		return ToolResult{Content: "Blocked: tool execution denied by policy", IsError: true}

	case permission.VerdictConfirm:
		if e.decider == nil {
			return ToolResult{Content: "Blocked: no interactive session to confirm this action", IsError: true}
		}
		result, proceed := e.confirm(ctx, tool, command, params)
		if !proceed {
			return result
		}

	case permission.VerdictAllow:
		// proceed
	}

	ctx, cancel := context.WithTimeout(ctx, e.defaultTimeout)
	defer cancel()

	// Separate cancel so the UI can kill this specific tool.
	ctx, toolCancel := context.WithCancel(ctx)
	defer toolCancel()
	if e.toolCanceller != nil {
		e.toolCanceller.SetToolCancel(toolCancel)
		defer e.toolCanceller.ClearToolCancel()
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return cancelledResult()
		}
		return ToolResult{Content: fmt.Sprintf("error: %v", err), IsError: true}
	}

	limit := toolOutputLimit(name)
	if len(result.Content) > limit {
		result.Content = truncateHeadTail(result.Content, limit)
		result.Truncated = true
	}
	return result
}

// confirm raises a permission request and applies the decision. The second
// return value is true when execution should proceed.
func (e *Executor) confirm(ctx context.Context, tool Tool, command string, params json.RawMessage) (ToolResult, bool) {
	ask := permission.Ask{
		ToolName:             tool.Name(),
		ToolInput:            inputMap(params),
		HidePersistentOption: tool.PermissionLevel() >= PermissionDangerous,
	}
	if tool.Name() == permission.ShellToolName {
		ask.SuggestedPrefix = permission.CommandPrefix(command)
	}

	decision, err := e.decider.Request(ctx, ask)
	if err != nil {
		// Operator pressed Esc: translate into the contract denial and
		// stop the turn.
		return ToolResult{
			Content:       permission.CancelMessage,
			IsError:       true,
			UserCancelled: true,
		}, false
	}

	if decision.Behavior == permission.BehaviorDeny {
		return ToolResult{
			Content: fmt.Sprintf("The user denied this action: %s", decision.Message),
			IsError: true,
		}, false
	}

	if decision.NewPermissionRule != "" {
		e.policy.AddRule(decision.NewPermissionRule)
	}
	if decision.NewPermissionMode != "" {
		e.policy.SetMode(decision.NewPermissionMode)
	}
	return ToolResult{}, true
}

func cancelledResult() ToolResult {
	return ToolResult{
		Content:       "[User cancelled: tool was not executed]",
		UserCancelled: true,
	}
}

// commandParam extracts the shell command from the shell tool's params.
func commandParam(name string, params json.RawMessage) string {
	if name != permission.ShellToolName {
		return ""
	}
	var p struct {
		Command string `json:"command"`
	}
	if json.Unmarshal(params, &p) == nil {
		return p.Command
	}
	return ""
}

// inputMap parses tool params into the opaque map carried on the request.
func inputMap(params json.RawMessage) map[string]any {
	m := make(map[string]any)
	_ = json.Unmarshal(params, &m)
	return m
}

// toolOutputLimit returns the output byte limit for a given tool.
func toolOutputLimit(name string) int {
	switch name {
	case "read_file", "grep", "bash":
		return 32 * 1024
	case "glob":
		return 16 * 1024
	default:
		return 4 * 1024
	}
}

// truncateHeadTail keeps the head (60%) and tail (40%) of a string,
// omitting the middle; tail content (errors, final results) tends to
// matter more than the middle.
func truncateHeadTail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	head := maxLen * 3 / 5
	tail := maxLen * 2 / 5
	omitted := len(s) - head - tail
	return s[:head] + fmt.Sprintf("\n\n[...%d chars omitted...]\n\n", omitted) + s[len(s)-tail:]
}
