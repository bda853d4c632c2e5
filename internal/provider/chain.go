package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// BalanceFunc fetches one raw integer quantity from one provider.
type BalanceFunc func(ctx context.Context) (decimal.Decimal, error)

// Source pairs a provider call with its retry policy inside a chain.
type Source struct {
	Name   string
	Policy RetryPolicy
	Fetch  BalanceFunc
}

// Chain is an ordered list of alternative providers for one logical query,
// cheap tiers first. It succeeds on the first non-error numeric result — a
// provider-confirmed zero terminates the chain like any other answer.
type Chain struct {
	Op      string
	Sources []Source
}

// Outcome is the result of walking a chain. Confirmed distinguishes "a
// provider answered zero" from "no provider could answer"; in the latter
// case Quantity is zero and Failures carries a diagnostic per provider.
// Chain exhaustion is a degraded result, never an error to the caller.
type Outcome struct {
	Quantity  decimal.Decimal
	Source    string
	Confirmed bool
	Failures  []string
}

// Resolve tries each source in order through the retry driver.
func (c Chain) Resolve(ctx context.Context) Outcome {
	out := Outcome{Quantity: decimal.Zero}
	for _, src := range c.Sources {
		v, err := Retry(ctx, src.Policy, c.Op, src.Fetch)
		if err != nil {
			out.Failures = append(out.Failures,
				fmt.Sprintf("%s via %s: %v", c.Op, src.Name, err))
			if ctx.Err() != nil {
				return out
			}
			continue
		}
		out.Quantity = v
		out.Source = src.Name
		out.Confirmed = true
		return out
	}
	return out
}
