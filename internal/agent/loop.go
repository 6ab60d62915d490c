package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/quill-ai/quill/internal/permission"
	"github.com/quill-ai/quill/internal/provider"
	"github.com/quill-ai/quill/internal/tools"
)

// runAgentLoop executes the core agentic loop:
//  1. Send messages to the LLM via streaming Chat()
//  2. Collect text deltas (stream to UI) and tool calls
//  3. If tool calls exist, execute them, append results to history, and loop
//  4. If no tool calls, return (wait for next user input)
//
// A per-turn child context is created so that Esc can cancel the entire turn
// (including LLM streaming) without affecting the session-level context.
func (a *Agent) runAgentLoop(ctx context.Context) error {
	maxIter := a.config.MaxIterations // 0 = unlimited

	// Per-turn context: Esc cancels this, not the session.
	turnCtx, turnCancel := context.WithCancel(ctx)
	defer turnCancel()

	// Register the turn cancel with the UI so Esc can trigger it.
	if lc, ok := a.io.(tools.LoopCanceller); ok {
		lc.SetLoopCancel(turnCancel)
		defer lc.ClearLoopCancel()
	}

	doomDetector := &doomLoopDetector{}

	for iteration := 0; maxIter == 0 || iteration < maxIter; iteration++ {
		// Check if the turn was cancelled before starting an iteration.
		if turnCtx.Err() != nil {
			a.io.SystemMessage("Interrupted.")
			return nil
		}

		sysPrompt := a.systemPrompt
		if a.planMode() {
			sysPrompt += "\n\n[PLAN MODE] You are in plan mode. Analyze the request, explore the codebase " +
				"using your read-only tools, then present your implementation plan via the exit_plan_mode " +
				"tool. Do NOT make any changes until the user approves the plan."
		}

		req := &provider.ChatRequest{
			Model:        a.config.Model,
			Messages:     a.session.Messages,
			Tools:        a.buildToolSchemas(),
			SystemPrompt: sysPrompt,
			MaxTokens:    8192,
		}

		var textContent strings.Builder
		var toolCalls []*provider.ToolCallRequest
		var streamErr error

		// Retry loop for transient API errors.
		for attempt := range chatRetry.attempts + 1 {
			textContent.Reset()
			toolCalls = nil
			streamErr = nil

			events, err := a.provider.Chat(turnCtx, req)
			if err != nil {
				// If cancelled by user Esc, exit gracefully.
				if turnCtx.Err() != nil {
					a.io.SystemMessage("Interrupted.")
					return nil
				}
				if attempt < chatRetry.attempts && chatRetry.retryable(err) {
					delay := chatRetry.backoff(attempt)
					a.io.SystemMessage(chatRetry.notice(attempt, delay, err))
					if sleepErr := chatRetry.wait(turnCtx, delay); sleepErr != nil {
						a.io.SystemMessage("Interrupted.")
						return nil
					}
					continue
				}
				return fmt.Errorf("LLM call failed: %w", err)
			}

			a.io.ThinkingStart()

			receivedContent := false
			for event := range events {
				// Check for user cancellation mid-stream.
				if turnCtx.Err() != nil {
					break
				}
				switch event.Type {
				case provider.EventTextDelta:
					receivedContent = true
					a.io.TextDelta(event.TextDelta)
					textContent.WriteString(event.TextDelta)

				case provider.EventToolCallDone:
					receivedContent = true
					toolCalls = append(toolCalls, event.ToolCall)

				case provider.EventDone:
					if event.Usage != nil {
						a.session.AddUsage(event.Usage)
						a.io.SetTokens(a.session.TokensUsed)
					}

				case provider.EventError:
					streamErr = event.Error
				}
			}

			// If user cancelled during streaming, exit gracefully.
			if turnCtx.Err() != nil {
				full := textContent.String()
				a.io.TextDone(full)
				if full != "" {
					a.session.AddMessage(buildAssistantMessage(full, nil))
				}
				a.io.SystemMessage("Interrupted.")
				return nil
			}

			// If stream error occurred before any content, retry if possible.
			if streamErr != nil && !receivedContent && attempt < chatRetry.attempts && chatRetry.retryable(streamErr) {
				delay := chatRetry.backoff(attempt)
				a.io.SystemMessage(chatRetry.notice(attempt, delay, streamErr))
				if sleepErr := chatRetry.wait(turnCtx, delay); sleepErr != nil {
					a.io.SystemMessage("Interrupted.")
					return nil
				}
				continue
			}

			// Stream error after content was received: can't retry safely.
			if streamErr != nil {
				return fmt.Errorf("stream error: %w", streamErr)
			}

			break // success
		}

		full := textContent.String()
		a.io.TextDone(full)

		assistantMsg := buildAssistantMessage(full, toolCalls)
		a.session.AddMessage(assistantMsg)

		if len(toolCalls) == 0 {
			return nil
		}

		if maxIter > 0 && iteration == maxIter-1 {
			a.io.SystemMessage(fmt.Sprintf(
				"warning: reached max iterations (%d), stopping", maxIter))
			return nil
		}

		// Doom loop detection: catch the model issuing identical tool calls repeatedly.
		switch doomDetector.check(toolCalls) {
		case doomLoopWarn:
			warning := "You have been issuing the same tool calls repeatedly. " +
				"This looks like an infinite loop. Try a different approach or stop calling tools."
			a.io.SystemMessage("warning: possible doom loop detected, injecting hint to model")
			a.session.AddMessage(provider.Message{
				Role: provider.RoleUser,
				Content: []provider.Content{{
					Type: provider.ContentTypeText,
					Text: "[SYSTEM] " + warning,
				}},
			})
		case doomLoopStop:
			a.io.SystemMessage("error: doom loop detected, same tool calls repeated 5 times, stopping")
			return nil
		}

		toolResults, interrupted := a.executeToolCalls(turnCtx, toolCalls)
		a.session.AddMessage(provider.Message{
			Role:    provider.RoleUser,
			Content: toolResults,
		})

		// A decision may have switched the permission mode (don't-ask-again
		// on exit_plan_mode, for example); keep the status bar in sync.
		a.io.SetMode(a.executor.Policy().Mode())

		// If user interrupted during tool execution, stop the loop
		// and return to user input. The partial results are already
		// in the message history for context continuity.
		if interrupted {
			a.io.SystemMessage("Interrupted.")
			return nil
		}
	}
	return nil
}

// buildAssistantMessage creates a history message from the LLM response.
func buildAssistantMessage(text string, toolCalls []*provider.ToolCallRequest) provider.Message {
	var contents []provider.Content

	if text != "" {
		contents = append(contents, provider.Content{
			Type: provider.ContentTypeText,
			Text: text,
		})
	}

	for _, tc := range toolCalls {
		contents = append(contents, provider.Content{
			Type:      provider.ContentTypeToolUse,
			ToolUseID: tc.ID,
			ToolName:  tc.Name,
			ToolInput: tc.Input,
		})
	}

	return provider.Message{Role: provider.RoleAssistant, Content: contents}
}

// executeToolCalls runs tool calls and returns tool_result content blocks.
// When multiple calls are present, they execute concurrently via goroutines.
// Results are kept in the same order as the input calls.
// The second return value is true if the user interrupted (Esc) during execution.
func (a *Agent) executeToolCalls(ctx context.Context, calls []*provider.ToolCallRequest) ([]provider.Content, bool) {
	// Single call: run inline (no goroutine overhead).
	if len(calls) == 1 {
		return a.executeSingleToolCall(ctx, calls[0])
	}

	// Multiple calls: run concurrently. Non-read-only calls still serialize
	// on the permission coordinator, which shows one request at a time.
	resultSlots := make([][]provider.Content, len(calls))
	var interrupted atomic.Bool
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c *provider.ToolCallRequest) {
			defer wg.Done()

			// If another goroutine was interrupted, skip this one.
			if interrupted.Load() {
				return
			}

			a.io.ToolStart(c.ID, c.Name, string(c.Input))
			result := a.executor.Execute(ctx, c.Name, c.Input)
			a.io.ToolDone(c.ID, c.Name, result.Content, result.IsError)

			resultSlots[idx] = []provider.Content{{
				Type:       provider.ContentTypeToolResult,
				ToolUseID:  c.ID,
				ToolResult: result.Content,
				IsError:    result.IsError,
			}}

			if result.UserCancelled {
				interrupted.Store(true)
			}
		}(i, call)
	}

	wg.Wait()

	// Assemble results in order, filling in cancelled placeholders for skipped calls.
	var results []provider.Content
	wasInterrupted := interrupted.Load()

	for i, call := range calls {
		if slot := resultSlots[i]; len(slot) > 0 {
			results = append(results, slot...)
		} else {
			// This call was skipped due to interruption.
			results = append(results, provider.Content{
				Type:       provider.ContentTypeToolResult,
				ToolUseID:  call.ID,
				ToolResult: "[User cancelled this turn. The tool was not executed; do not retry unless the user asks.]",
				IsError:    false,
			})
		}
	}

	return results, wasInterrupted
}

// executeSingleToolCall handles the simple case of a single tool call (no concurrency).
func (a *Agent) executeSingleToolCall(ctx context.Context, call *provider.ToolCallRequest) ([]provider.Content, bool) {
	a.io.ToolStart(call.ID, call.Name, string(call.Input))
	result := a.executor.Execute(ctx, call.Name, call.Input)
	a.io.ToolDone(call.ID, call.Name, result.Content, result.IsError)

	results := []provider.Content{{
		Type:       provider.ContentTypeToolResult,
		ToolUseID:  call.ID,
		ToolResult: result.Content,
		IsError:    result.IsError,
	}}

	return results, result.UserCancelled
}

// planMode reports whether the policy is currently in plan mode.
func (a *Agent) planMode() bool {
	return a.executor.Policy().Mode() == permission.ModePlan
}

// buildToolSchemas converts the executor's registry tools into provider.ToolSchema.
// In plan mode only read-only tools are offered, plus exit_plan_mode so the
// model has a way out.
func (a *Agent) buildToolSchemas() []provider.ToolSchema {
	registryTools := a.executor.Registry().All()
	planMode := a.planMode()
	schemas := make([]provider.ToolSchema, 0, len(registryTools))
	for _, t := range registryTools {
		if planMode && !t.IsReadOnly() && t.Name() != permission.PlanExitToolName {
			continue
		}
		if !planMode && t.Name() == permission.PlanExitToolName {
			continue
		}
		schemas = append(schemas, provider.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return schemas
}
