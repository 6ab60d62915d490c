package permission

import "context"

// Ask carries everything the agent engine provides when raising a
// permission request.
type Ask struct {
	// ToolName identifies the action needing approval.
	ToolName string

	// ToolInput is opaque to the core; it is used for display and for
	// building the "remember this" rule for shell-command tools.
	ToolInput map[string]any

	// SuggestedPrefix is an optional hint for building a narrower
	// auto-approval rule (shell-command tools only).
	SuggestedPrefix string

	// HidePersistentOption suppresses the "don't ask again" choice.
	HidePersistentOption bool

	// Questions switches the request into the structured-interview flow
	// when non-nil.
	Questions []Question
}

// Outcome is the settlement of one request: either a Decision or an error
// (ErrCancelled when the operator aborted).
type Outcome struct {
	Decision Decision
	Err      error
}

// Request is one pending approval raised by the agent engine. It lives in
// the queue until promoted to "current", then is settled exactly once by
// the confirmation UI (or cancelled).
type Request struct {
	Ask

	// done carries the single settlement. Buffered so the settling side
	// never blocks on a caller that has not reached Await yet.
	done    chan Outcome
	settled bool // guarded by the owning queue's mutex
}

func newRequest(a Ask) *Request {
	return &Request{Ask: a, done: make(chan Outcome, 1)}
}

// Interview reports whether this request uses the structured-interview
// flow instead of the simple three-way choice.
func (r *Request) Interview() bool {
	return r.Questions != nil
}

// Command returns the shell command from the tool input, if any.
func (r *Request) Command() string {
	if s, ok := r.ToolInput["command"].(string); ok {
		return s
	}
	return ""
}

// Done returns the settlement channel. It receives exactly one Outcome.
func (r *Request) Done() <-chan Outcome {
	return r.done
}

// Await blocks until the request is settled or ctx is cancelled.
// A context cancellation surfaces as ErrCancelled.
func (r *Request) Await(ctx context.Context) (Decision, error) {
	select {
	case out := <-r.done:
		return out.Decision, out.Err
	case <-ctx.Done():
		return Decision{}, ErrCancelled
	}
}

// settle delivers the outcome. Must be called with the owning queue's
// mutex held. Settling twice is a programming error, not a recoverable
// condition.
func (r *Request) settle(out Outcome) {
	if r.settled {
		panic("permission: request settled twice")
	}
	r.settled = true
	r.done <- out
}
