package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("value = %d, want 42", v)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastPolicy(), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient("p", "op", errors.New("boom"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("value = %q, want ok", v)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 0, RateLimited("p", "op", errors.New("slow down"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if KindOf(err) != FailureRateLimited {
		t.Errorf("kind = %s, want rate_limited", KindOf(err))
	}
}

func TestRetryPermanentAbortsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 0, Permanent("p", "op", errors.New("bad address"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (permanent must not retry)", calls)
	}
}

func TestRetryUnclassifiedErrorIsTransient(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (unclassified errors retry)", calls)
	}
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute}, "op", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, Transient("p", "op", errors.New("boom"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancel must interrupt the backoff wait)", calls)
	}
}

func TestRetryZeroPolicyUsesDefaults(t *testing.T) {
	p := RetryPolicy{}.normalized()
	if p.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", p.MaxAttempts, DefaultMaxAttempts)
	}
	if p.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %s, want 1s", p.BaseDelay)
	}
}
