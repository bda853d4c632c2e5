// Package provider contains the clients for external balance and price data
// sources, the retry/backoff driver, and the fallback chain that orders
// providers per logical query.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// FailureKind classifies a provider failure for retry decisions.
type FailureKind string

const (
	// FailureTransient covers timeouts, 5xx responses and malformed but
	// retryable replies.
	FailureTransient FailureKind = "transient"
	// FailureRateLimited covers 429 and equivalents; retryable with
	// mandatory backoff.
	FailureRateLimited FailureKind = "rate_limited"
	// FailurePermanent covers non-retryable client errors such as invalid
	// addresses or rejected credentials.
	FailurePermanent FailureKind = "permanent"
)

// Error is a classified provider failure.
type Error struct {
	Kind     FailureKind
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(name, op string, err error) *Error {
	return &Error{Kind: FailureTransient, Provider: name, Op: op, Err: err}
}

// RateLimited wraps err as a retryable failure requiring backoff.
func RateLimited(name, op string, err error) *Error {
	return &Error{Kind: FailureRateLimited, Provider: name, Op: op, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(name, op string, err error) *Error {
	return &Error{Kind: FailurePermanent, Provider: name, Op: op, Err: err}
}

// KindOf extracts the failure classification from err. Unclassified errors
// (raw network failures, context cancellation) count as transient.
func KindOf(err error) FailureKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureTransient
}

// DiscoverFunc enumerates all holdings of one account on networks that
// support account-wide token discovery.
type DiscoverFunc func(ctx context.Context) ([]Holding, error)

// Holding is one asset reported by an account-wide enumeration call on
// networks that support token discovery. Symbol may be empty when the chain
// reports contracts only; Decimals is negative when the provider does not
// report precision.
type Holding struct {
	Symbol   string
	Contract string
	Raw      decimal.Decimal
	Decimals int32
}
