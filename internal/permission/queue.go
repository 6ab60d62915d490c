package permission

import "sync"

// Queue holds pending requests in FIFO order and exposes at most one as
// "current", the request the operator is looking at. All mutation happens
// under a single mutex; enqueueing is safe from any number of concurrent
// producers (parallel tool calls in the agent engine).
type Queue struct {
	mu        sync.Mutex
	pending   []*Request
	current   *Request
	presenter func(*Request)
}

// NewQueue creates an empty request queue.
func NewQueue() *Queue {
	return &Queue{}
}

// SetPresenter registers the UI hook invoked whenever a request becomes
// current. The presenter runs on its own goroutine so a resolution made
// from inside a UI event handler can never deadlock against its own
// event loop.
func (q *Queue) SetPresenter(fn func(*Request)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.presenter = fn
	q.promoteLocked()
}

// Enqueue appends a request and promotes it immediately if nothing is
// current. It never rejects and never reorders.
func (q *Queue) Enqueue(r *Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, r)
	q.promoteLocked()
}

// Current returns the request being shown to the operator, or nil.
func (q *Queue) Current() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Len returns the number of queued requests, excluding the current one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Resolve settles the current request with a decision and promotes the
// next one. Returns the settled request, or nil when nothing was current.
func (q *Queue) Resolve(d Decision) *Request {
	return q.settleCurrent(Outcome{Decision: d})
}

// Cancel rejects the current request with ErrCancelled and promotes the
// next one. Queued requests are untouched. Idempotent: cancelling when
// nothing is current is a no-op.
func (q *Queue) Cancel() *Request {
	return q.settleCurrent(Outcome{Err: ErrCancelled})
}

func (q *Queue) settleCurrent(out Outcome) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil
	}
	settled := q.current
	settled.settle(out)
	q.current = nil
	q.promoteLocked()
	return settled
}

// Withdraw removes a request whose caller has gone away (context
// cancellation on the await side). A pending request is dropped silently;
// the current request is cancelled so the next one can be shown.
func (q *Queue) Withdraw(r *Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == r {
		if !r.settled {
			r.settle(Outcome{Err: ErrCancelled})
		}
		q.current = nil
		q.promoteLocked()
		return
	}
	for i, p := range q.pending {
		if p == r {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			if !r.settled {
				r.settle(Outcome{Err: ErrCancelled})
			}
			return
		}
	}
}

// promoteLocked pops the head of the queue into current and notifies the
// presenter. Caller must hold q.mu.
func (q *Queue) promoteLocked() {
	if q.current != nil || len(q.pending) == 0 {
		return
	}
	q.current = q.pending[0]
	q.pending = q.pending[1:]
	if q.presenter != nil {
		go q.presenter(q.current)
	}
}
