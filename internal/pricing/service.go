package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/provider"
)

// DefaultBatchSize matches the typical per-request symbol ceiling of quote
// providers.
const DefaultBatchSize = 100

// QuoteClient fetches USD quotes for one batch of symbols.
type QuoteClient interface {
	Quotes(ctx context.Context, symbols []string) (map[string]domain.PriceQuote, error)
}

// Repository persists fetched quotes for observability. Optional.
type Repository interface {
	SaveQuotes(ctx context.Context, quotes []domain.PriceQuote) error
}

// Service batches the run's symbol set through the quote client with the
// same retry/backoff policy the balance providers use, enforcing an
// inter-batch delay against the provider's aggregate rate budget.
type Service struct {
	client     QuoteClient
	repo       Repository
	policy     provider.RetryPolicy
	batchSize  int
	batchDelay time.Duration
}

// NewService creates the price fetcher. repo may be nil.
func NewService(client QuoteClient, repo Repository, policy provider.RetryPolicy, batchSize int, batchDelay time.Duration) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{client: client, repo: repo, policy: policy, batchSize: batchSize, batchDelay: batchDelay}
}

// Fetch resolves USD quotes for the deduplicated symbol set. The returned
// map is total over the request: a batch that exhausts retries or a symbol
// the provider does not know degrades to a zero quote, never a missing key.
// Diagnostics describe what degraded.
func (s *Service) Fetch(ctx context.Context, symbols []string) (map[string]domain.PriceQuote, []string) {
	requested := lo.Uniq(lo.FilterMap(symbols, func(sym string, _ int) (string, bool) {
		sym = domain.NormalizeSymbol(sym)
		return sym, sym != ""
	}))
	sort.Strings(requested)

	result := make(map[string]domain.PriceQuote, len(requested))
	var diags []string

	for i, batch := range lo.Chunk(requested, s.batchSize) {
		if i > 0 && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				diags = append(diags, fmt.Sprintf("price fetch cancelled: %v", ctx.Err()))
				return s.fillMissing(ctx, requested, result), diags
			case <-time.After(s.batchDelay):
			}
		}

		quotes, err := provider.Retry(ctx, s.policy, "price batch", func(ctx context.Context) (map[string]domain.PriceQuote, error) {
			return s.client.Quotes(ctx, batch)
		})
		if err != nil {
			// The batch's symbols stay unresolved and zero-fill below.
			diags = append(diags, fmt.Sprintf("price batch of %d symbols failed: %v", len(batch), err))
			continue
		}
		// Key by the canonical form so lookups and zero-fill agree even when
		// the provider answers in a different case.
		for sym, q := range quotes {
			result[domain.NormalizeSymbol(sym)] = q
		}
	}

	return s.fillMissing(ctx, requested, result), diags
}

// fillMissing completes the map with zero quotes and persists what was
// actually resolved.
func (s *Service) fillMissing(ctx context.Context, requested []string, result map[string]domain.PriceQuote) map[string]domain.PriceQuote {
	resolved := lo.Values(result)
	for _, sym := range requested {
		if _, ok := result[sym]; !ok {
			result[sym] = domain.ZeroQuote(sym)
		}
	}

	if s.repo != nil && len(resolved) > 0 {
		if err := s.repo.SaveQuotes(ctx, resolved); err != nil {
			slog.Warn("failed to store price quotes", "error", err)
		}
	}
	return result
}
