package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"
)

// DefaultMaxAttempts bounds retries when a policy does not say otherwise.
const DefaultMaxAttempts = 3

const maxBackoffDelay = 30 * time.Second

// RetryPolicy drives bounded retry with exponential backoff. The same policy
// is shared by every provider call site, the fallback chains and the price
// fetcher — it is one algorithm, not a per-caller copy.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	return p
}

// Retry executes fn up to p.MaxAttempts times. Transient and rate-limited
// failures sleep base×2^attempt before the next try; permanent failures
// abort immediately. After exhausting attempts the last failure is returned.
// The backoff wait is cancellable through ctx.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()
	b := &backoff.Backoff{Min: p.BaseDelay, Max: maxBackoffDelay, Factor: 2}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		kind := KindOf(err)
		if kind == FailurePermanent {
			return zero, err
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := b.Duration()
		slog.Debug("retrying provider call",
			"op", op, "attempt", attempt, "kind", kind, "delay", delay)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
