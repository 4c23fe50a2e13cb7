package llm

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy is an explicit value object consumed by DoWithRetry. No shared
// mutable defaults: callers copy and adjust as needed.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // 0..1 fraction of the delay added as random jitter
}

// DefaultRetryPolicy matches the whole-document call budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.2,
	}
}

// Delay returns the backoff before the given retry (attempt is 1-based; the
// delay applies after attempt n fails). Exponential base*2^(n-1), capped,
// plus random jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.JitterFactor > 0 {
		d += time.Duration(rand.Float64() * p.JitterFactor * float64(d))
	}
	return d
}

// DoWithRetry runs op under the policy, retrying only failures the taxonomy
// marks retryable. Auth errors and context cancellation propagate immediately.
func DoWithRetry[T any](ctx context.Context, logger *slog.Logger, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !Retryable(err) || attempt == policy.MaxAttempts {
			return zero, err
		}
		delay := policy.Delay(attempt)
		logger.Warn("llm.retry",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
