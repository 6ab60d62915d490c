// Package tui defines the IO interface between the agent loop and the
// user interface layer, plus PlainIO (line-mode fallback) and TuiIO
// (bubbletea). Permission dialogs do not go through IO: they are
// presented by the permission coordinator's presenter, which both
// implementations register at startup.
package tui

import "github.com/quill-ai/quill/internal/permission"

// IO is the contract between the agent loop and the UI layer.
type IO interface {
	// ReadInput blocks until the user submits a line of input.
	// Returns ("", io.EOF) when the user quits.
	ReadInput() (string, error)

	// UserMessage displays the user's submitted message in the output area.
	UserMessage(text string)

	// ThinkingStart signals that the LLM has started processing.
	ThinkingStart()

	// TextDelta appends an incremental text chunk from the LLM stream.
	TextDelta(delta string)

	// TextDone signals that the current LLM response is complete.
	// fullText contains the entire response assembled from all deltas.
	// TUI implementations use this to trigger Markdown rendering.
	TextDone(fullText string)

	// ToolStart signals that a tool call has begun.
	// id uniquely identifies this call (for correlation with ToolDone).
	ToolStart(id, name, params string)

	// ToolDone signals that a tool call has completed.
	// id matches the id passed to ToolStart.
	ToolDone(id, name, result string, isErr bool)

	// SystemMessage displays a system-level notice (e.g. "/clear" feedback,
	// max-iteration warnings, session status).
	SystemMessage(text string)

	// Error displays an error message with prominent styling.
	Error(msg string)

	// SetTokens updates the token counter shown in the status area.
	SetTokens(n int)

	// SetMode updates the permission mode indicator in the status bar.
	SetMode(mode permission.Mode)
}
