package permission

import "context"

// DecisionObserver receives every settled outcome, for audit logging.
type DecisionObserver interface {
	ObserveDecision(toolName string, out Outcome)
}

// Coordinator adapts the agent engine's call-and-await style to the
// queue's display-and-resolve style. The engine side calls Submit or
// Request from any goroutine; the UI side calls Resolve or Cancel for
// the current request.
type Coordinator struct {
	queue    *Queue
	observer DecisionObserver
}

// NewCoordinator creates a coordinator with an empty queue.
func NewCoordinator() *Coordinator {
	return &Coordinator{queue: NewQueue()}
}

// SetPresenter registers the UI hook fired when a request becomes current.
func (c *Coordinator) SetPresenter(fn func(*Request)) {
	c.queue.SetPresenter(fn)
}

// SetObserver registers an audit observer for settled outcomes.
func (c *Coordinator) SetObserver(o DecisionObserver) {
	c.observer = o
}

// Submit enqueues a permission request and returns it immediately; the
// caller awaits the decision on Request.Done or Request.Await.
func (c *Coordinator) Submit(a Ask) *Request {
	r := newRequest(a)
	c.queue.Enqueue(r)
	return r
}

// Request is the blocking convenience form: enqueue, then await. When ctx
// is cancelled before the operator decides, the request is withdrawn from
// the queue and ErrCancelled is returned.
func (c *Coordinator) Request(ctx context.Context, a Ask) (Decision, error) {
	r := c.Submit(a)
	d, err := r.Await(ctx)
	if err != nil && ctx.Err() != nil {
		c.queue.Withdraw(r)
	}
	return d, err
}

// Resolve settles the current request with the state machine's terminal
// decision and promotes the next queued request.
func (c *Coordinator) Resolve(d Decision) {
	if settled := c.queue.Resolve(d); settled != nil {
		c.observe(settled.ToolName, Outcome{Decision: d})
	}
}

// Cancel rejects the current request. Idempotent: a second Escape after
// the request has settled is a no-op.
func (c *Coordinator) Cancel() {
	if settled := c.queue.Cancel(); settled != nil {
		c.observe(settled.ToolName, Outcome{Err: ErrCancelled})
	}
}

// Pending returns the number of queued, not-yet-shown requests.
func (c *Coordinator) Pending() int {
	return c.queue.Len()
}

// CurrentRequest returns the request being shown to the operator, or nil.
func (c *Coordinator) CurrentRequest() *Request {
	return c.queue.Current()
}

func (c *Coordinator) observe(toolName string, out Outcome) {
	if c.observer != nil {
		c.observer.ObserveDecision(toolName, out)
	}
}
