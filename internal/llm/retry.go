package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// isRetriable returns true for LLM failures worth retrying: transport
// hiccups, server-side errors, and timeouts. An auth rejection is
// never retriable — it means the credential itself is bad, so retrying
// wastes the whole budget on a request guaranteed to fail again.
func isRetriable(err error) bool {
	var llmErr *Error
	if !errors.As(err, &llmErr) {
		return false
	}
	switch llmErr.Phase {
	case PhaseNetwork, PhaseServer, PhaseTimeout:
		return true
	default:
		return false
	}
}

// WithRetry executes fn, retrying on transient LLM failures up to
// maxRetries additional times beyond the first attempt. Backoff
// doubles after each failed attempt, jittered so a burst of chunks
// hitting the same rate limit don't all retry in lockstep.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isRetriable(lastErr) {
			return lastErr
		}
		if attempt >= maxRetries {
			return lastErr
		}
		if err := sleepWithJitter(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

// sleepWithJitter blocks for delay plus a random fraction of delay, or
// returns ctx's error if it's cancelled first.
func sleepWithJitter(ctx context.Context, delay time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(delay))) //nolint:gosec // jitter doesn't need crypto-strength randomness
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay + jitter):
		return nil
	}
}
