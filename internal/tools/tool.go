// Package tools defines the tool interface and shared types, plus the
// registry and the permission-checked executor.
package tools

import (
	"context"
	"encoding/json"
)

// PermissionLevel classifies how sensitive a tool's operation is.
type PermissionLevel int

const (
	PermissionRead      PermissionLevel = iota // read-only: auto-allowed
	PermissionWrite                            // writes files: ask by default
	PermissionExecute                          // runs commands: ask, show the command
	PermissionDangerous                        // forced confirmation, no "don't ask again"
)

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Content       string // primary output
	IsError       bool   // error result (fed back to the model)
	Truncated     bool   // content was cut to the output limit
	UserCancelled bool   // operator aborted; the agent loop should stop the turn
}

// Tool is the interface every LLM-callable tool implements.
type Tool interface {
	// Name returns the snake_case identifier the model calls, e.g. "read_file".
	Name() string

	// Description is the tool documentation sent to the model.
	Description() string

	// Parameters returns the JSON Schema properties of the tool input.
	Parameters() map[string]any

	// Execute runs the tool. ctx comes from the agent loop and may be
	// cancelled by the operator mid-run.
	Execute(ctx context.Context, params json.RawMessage) (ToolResult, error)

	// IsReadOnly marks tools that never mutate anything; they skip
	// confirmation and may run in parallel.
	IsReadOnly() bool

	// PermissionLevel returns the sensitivity of this tool.
	PermissionLevel() PermissionLevel
}
