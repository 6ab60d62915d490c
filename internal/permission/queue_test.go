package permission

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func askFor(tool string) Ask {
	return Ask{ToolName: tool, ToolInput: map[string]any{}}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue()

	var mu sync.Mutex
	var shown []string
	q.SetPresenter(func(r *Request) {
		mu.Lock()
		shown = append(shown, r.ToolName)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		q.Enqueue(newRequest(askFor(fmt.Sprintf("tool-%d", i))))
	}
	for i := 0; i < 5; i++ {
		waitForCurrent(t, q)
		q.Resolve(Allowed())
	}

	// Presenter callbacks run on their own goroutines; wait for the last one.
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(shown)
		mu.Unlock()
		if n == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 5 presentations, got %d", n)
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, name := range shown {
		if want := fmt.Sprintf("tool-%d", i); name != want {
			t.Errorf("presentation %d: got %s, want %s", i, name, want)
		}
	}
}

func TestQueue_SingleCurrent(t *testing.T) {
	q := NewQueue()
	q.Enqueue(newRequest(askFor("a")))
	q.Enqueue(newRequest(askFor("b")))
	q.Enqueue(newRequest(askFor("c")))

	if q.Current() == nil {
		t.Fatal("expected a current request after enqueue")
	}
	if q.Current().ToolName != "a" {
		t.Errorf("current should be first enqueued, got %s", q.Current().ToolName)
	}
	if q.Len() != 2 {
		t.Errorf("expected 2 pending, got %d", q.Len())
	}
}

func TestQueue_ResolveSettlesExactlyOnce(t *testing.T) {
	q := NewQueue()
	r := newRequest(askFor("bash"))
	q.Enqueue(r)

	q.Resolve(Denied("no"))

	out := <-r.Done()
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Decision.Behavior != BehaviorDeny || out.Decision.Message != "no" {
		t.Errorf("unexpected decision: %+v", out.Decision)
	}

	select {
	case <-r.Done():
		t.Fatal("settlement channel delivered a second outcome")
	default:
	}
}

func TestQueue_CancelLeavesQueuedRequestsIntact(t *testing.T) {
	q := NewQueue()
	first := newRequest(askFor("first"))
	second := newRequest(askFor("second"))
	third := newRequest(askFor("third"))
	q.Enqueue(first)
	q.Enqueue(second)
	q.Enqueue(third)

	q.Cancel()

	out := <-first.Done()
	if out.Err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", out.Err)
	}
	if q.Current() != second {
		t.Error("second request should be promoted after cancel")
	}
	if q.Len() != 1 {
		t.Errorf("third request should still be pending, got %d pending", q.Len())
	}
}

func TestQueue_CancelIdempotent(t *testing.T) {
	q := NewQueue()
	q.Enqueue(newRequest(askFor("only")))

	if settled := q.Cancel(); settled == nil {
		t.Fatal("first cancel should settle the request")
	}
	// Second Escape after the queue drained: nothing current, no panic.
	if settled := q.Cancel(); settled != nil {
		t.Fatal("second cancel should be a no-op")
	}
}

func TestQueue_DoubleSettlePanics(t *testing.T) {
	r := newRequest(askFor("x"))
	r.settle(Outcome{Decision: Allowed()})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double settle")
		}
	}()
	r.settle(Outcome{Decision: Allowed()})
}

func TestQueue_WithdrawPendingRequest(t *testing.T) {
	q := NewQueue()
	current := newRequest(askFor("current"))
	gone := newRequest(askFor("gone"))
	last := newRequest(askFor("last"))
	q.Enqueue(current)
	q.Enqueue(gone)
	q.Enqueue(last)

	q.Withdraw(gone)

	q.Resolve(Allowed())
	if q.Current() != last {
		t.Error("withdrawn request must not be shown; expected last to be promoted")
	}
}

func TestRequest_AwaitHonorsContext(t *testing.T) {
	r := newRequest(askFor("slow"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Await(ctx)
	if err != ErrCancelled {
		t.Fatalf("expected ErrCancelled on context cancellation, got %v", err)
	}
}

// waitForCurrent waits for the queue's presenter goroutine to have a
// current request visible.
func waitForCurrent(t *testing.T, q *Queue) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for q.Current() == nil {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a current request")
		}
		time.Sleep(time.Millisecond)
	}
}
