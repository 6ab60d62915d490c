package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strings"
	"time"
)

// chatRetry governs reconnects for the streaming chat call. Both wired
// providers signal rate limiting the same way (HTTP 429 plus a named API
// error type), so a single policy covers them.
var chatRetry = retryPolicy{
	attempts: 3,
	base:     2 * time.Second,
	cap:      30 * time.Second,
}

type retryPolicy struct {
	attempts int
	base     time.Duration
	cap      time.Duration
}

// transientStatuses: rate limiting, server-side failures, and the
// Anthropic overloaded signal (529).
var transientStatuses = []string{"429", "500", "502", "503", "504", "529"}

// apiErrorTypes are the named error types the Anthropic and OpenAI SDKs
// put in error bodies for conditions that clear on their own.
var apiErrorTypes = []string{
	"rate_limit_error",    // anthropic
	"overloaded_error",    // anthropic
	"rate_limit_exceeded", // openai
	"server_error",        // openai
}

// retryable reports whether err is transient. Cancellation is never
// transient: the operator asked to stop.
func (retryPolicy) retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, name := range apiErrorTypes {
		if strings.Contains(msg, name) {
			return true
		}
	}
	for _, status := range transientStatuses {
		if strings.Contains(msg, status) {
			return true
		}
	}
	switch {
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "EOF"):
		return true
	}
	return false
}

// backoff returns the wait before retrying attempt n (0-indexed):
// exponential from base, capped, with ±30% jitter so parallel sessions
// against the same key don't stampede.
func (p retryPolicy) backoff(attempt int) time.Duration {
	d := p.base << attempt
	if d <= 0 || d > p.cap {
		d = p.cap
	}
	spread := int64(d) * 30 / 100
	return d + time.Duration(rand.Int64N(2*spread+1)-spread)
}

// wait sleeps for d, returning early when ctx ends.
func (retryPolicy) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// notice is the status line shown while waiting out a transient error.
func (p retryPolicy) notice(attempt int, d time.Duration, err error) string {
	reason := err.Error()
	if len(reason) > 80 {
		reason = reason[:80] + "..."
	}
	return fmt.Sprintf("Provider error, retry %d of %d in %s (%s)",
		attempt+1, p.attempts, d.Round(time.Millisecond), reason)
}
