package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/provider"
)

type mockQuoteClient struct {
	batches [][]string
	calls   []time.Time
	quotes  map[string]domain.PriceQuote
	err     error
}

func (m *mockQuoteClient) Quotes(_ context.Context, symbols []string) (map[string]domain.PriceQuote, error) {
	m.batches = append(m.batches, symbols)
	m.calls = append(m.calls, time.Now())
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]domain.PriceQuote)
	for _, s := range symbols {
		if q, ok := m.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

type mockQuoteRepo struct {
	saved []domain.PriceQuote
}

func (m *mockQuoteRepo) SaveQuotes(_ context.Context, quotes []domain.PriceQuote) error {
	m.saved = append(m.saved, quotes...)
	return nil
}

func testQuote(symbol string, price int64) domain.PriceQuote {
	return domain.PriceQuote{Symbol: symbol, PriceUSD: decimal.NewFromInt(price), UpdatedAt: time.Now()}
}

func fastRetry() provider.RetryPolicy {
	return provider.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

func TestFetchNormalizesAndDeduplicates(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]domain.PriceQuote{
		"ETH": testQuote("ETH", 3000),
	}}
	svc := NewService(client, nil, fastRetry(), 100, 0)

	result, diags := svc.Fetch(context.Background(), []string{" eth ", "ETH", "eth", ""})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(client.batches) != 1 || len(client.batches[0]) != 1 {
		t.Fatalf("batches = %v, want one batch with one symbol", client.batches)
	}
	if client.batches[0][0] != "ETH" {
		t.Errorf("requested symbol = %q, want ETH", client.batches[0][0])
	}
	if !result["ETH"].PriceUSD.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("ETH price = %s, want 3000", result["ETH"].PriceUSD)
	}
}

func TestFetchSplitsIntoBatches(t *testing.T) {
	symbols := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		symbols = append(symbols, fmt.Sprintf("SYM%03d", i))
	}
	client := &mockQuoteClient{quotes: map[string]domain.PriceQuote{}}
	svc := NewService(client, nil, fastRetry(), 100, 0)

	svc.Fetch(context.Background(), symbols)
	if len(client.batches) != 3 {
		t.Fatalf("batches = %d, want 3 for 250 symbols at size 100", len(client.batches))
	}
	for i, b := range client.batches {
		if len(b) > 100 {
			t.Errorf("batch %d has %d symbols, limit is 100", i, len(b))
		}
	}
}

func TestFetchIsTotalOverRequest(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]domain.PriceQuote{
		"BTC": testQuote("BTC", 60000),
	}}
	svc := NewService(client, nil, fastRetry(), 100, 0)

	result, _ := svc.Fetch(context.Background(), []string{"BTC", "UNKNOWN"})
	if len(result) != 2 {
		t.Fatalf("result size = %d, want 2 (map must be total)", len(result))
	}
	q, ok := result["UNKNOWN"]
	if !ok {
		t.Fatal("unresolved symbol missing from result")
	}
	if !q.PriceUSD.IsZero() {
		t.Errorf("unresolved symbol price = %s, want 0", q.PriceUSD)
	}
}

func TestFetchBatchFailureZeroFills(t *testing.T) {
	client := &mockQuoteClient{err: provider.Transient("price-api", "quotes", errors.New("down"))}
	svc := NewService(client, nil, fastRetry(), 100, 0)

	result, diags := svc.Fetch(context.Background(), []string{"ETH", "BTC"})
	if len(diags) != 1 {
		t.Fatalf("diags = %v, want one batch failure", diags)
	}
	if len(client.batches) != 2 {
		t.Errorf("attempts = %d, want 2 (batch retries before degrading)", len(client.batches))
	}
	for _, sym := range []string{"ETH", "BTC"} {
		if !result[sym].PriceUSD.IsZero() {
			t.Errorf("%s price = %s, want zero after batch failure", sym, result[sym].PriceUSD)
		}
	}
}

// lowerKeyClient answers with lower-cased map keys, as some providers do.
type lowerKeyClient struct{}

func (lowerKeyClient) Quotes(_ context.Context, symbols []string) (map[string]domain.PriceQuote, error) {
	out := make(map[string]domain.PriceQuote, len(symbols))
	for _, s := range symbols {
		out[strings.ToLower(s)] = testQuote(s, 7)
	}
	return out, nil
}

func TestFetchCanonicalizesClientKeys(t *testing.T) {
	svc := NewService(lowerKeyClient{}, nil, fastRetry(), 100, 0)

	result, diags := svc.Fetch(context.Background(), []string{"btc"})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	q, ok := result["BTC"]
	if !ok {
		t.Fatalf("result keys = %v, want the canonical BTC", result)
	}
	if !q.PriceUSD.Equal(decimal.NewFromInt(7)) {
		t.Errorf("BTC price = %s, want 7 (the provider's quote, not a zero fill)", q.PriceUSD)
	}
}

func TestFetchWaitsBetweenBatches(t *testing.T) {
	const delay = 60 * time.Millisecond
	client := &mockQuoteClient{quotes: map[string]domain.PriceQuote{}}
	svc := NewService(client, nil, fastRetry(), 1, delay)

	svc.Fetch(context.Background(), []string{"AAA", "BBB"})
	if len(client.calls) != 2 {
		t.Fatalf("batches = %d, want 2", len(client.calls))
	}
	if gap := client.calls[1].Sub(client.calls[0]); gap < delay {
		t.Errorf("second batch started %s after the first, want at least %s", gap, delay)
	}
}

// cancellingClient cancels the fetch context after answering, so the next
// inter-batch wait observes a dead context.
type cancellingClient struct {
	inner  *mockQuoteClient
	cancel context.CancelFunc
}

func (c *cancellingClient) Quotes(ctx context.Context, symbols []string) (map[string]domain.PriceQuote, error) {
	defer c.cancel()
	return c.inner.Quotes(ctx, symbols)
}

func TestFetchCancelledDuringBatchDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inner := &mockQuoteClient{quotes: map[string]domain.PriceQuote{
		"AAA": testQuote("AAA", 2),
	}}
	svc := NewService(&cancellingClient{inner: inner, cancel: cancel}, nil, fastRetry(), 1, time.Minute)

	result, diags := svc.Fetch(ctx, []string{"AAA", "BBB", "CCC"})
	if len(inner.batches) != 1 {
		t.Fatalf("batches = %d, want 1 (no further batches after cancellation)", len(inner.batches))
	}
	if len(diags) != 1 || !strings.Contains(diags[0], "cancelled") {
		t.Errorf("diags = %v, want one cancellation diagnostic", diags)
	}
	if len(result) != 3 {
		t.Fatalf("result size = %d, want 3 (map stays total)", len(result))
	}
	if !result["AAA"].PriceUSD.Equal(decimal.NewFromInt(2)) {
		t.Errorf("AAA price = %s, want 2 (fetched before cancellation)", result["AAA"].PriceUSD)
	}
	for _, sym := range []string{"BBB", "CCC"} {
		if !result[sym].PriceUSD.IsZero() {
			t.Errorf("%s price = %s, want zero after cancellation", sym, result[sym].PriceUSD)
		}
	}
}

func TestFetchPersistsResolvedQuotes(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]domain.PriceQuote{
		"ETH": testQuote("ETH", 3000),
	}}
	repo := &mockQuoteRepo{}
	svc := NewService(client, repo, fastRetry(), 100, 0)

	svc.Fetch(context.Background(), []string{"ETH", "UNKNOWN"})
	if len(repo.saved) != 1 {
		t.Fatalf("saved = %d quotes, want 1 (zero fills are not persisted)", len(repo.saved))
	}
	if repo.saved[0].Symbol != "ETH" {
		t.Errorf("saved symbol = %q, want ETH", repo.saved[0].Symbol)
	}
}

func TestFetchEmptySymbolSet(t *testing.T) {
	client := &mockQuoteClient{}
	svc := NewService(client, nil, fastRetry(), 100, 0)

	result, diags := svc.Fetch(context.Background(), nil)
	if len(result) != 0 || len(diags) != 0 {
		t.Errorf("result = %v, diags = %v, want empty", result, diags)
	}
	if len(client.batches) != 0 {
		t.Errorf("client called %d times for an empty set", len(client.batches))
	}
}
