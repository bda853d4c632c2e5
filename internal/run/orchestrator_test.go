package run

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/pricing"
	"github.com/coinledger/holdings/internal/provider"
	"github.com/coinledger/holdings/internal/record"
)

type mockSource struct {
	wallets    []domain.Wallet
	tokens     []domain.Token
	walletsErr error
	mu         sync.Mutex
	synced     []int64
}

func (m *mockSource) ActiveWallets(context.Context) ([]domain.Wallet, error) {
	return m.wallets, m.walletsErr
}

func (m *mockSource) ActiveTokens(context.Context) ([]domain.Token, error) {
	return m.tokens, nil
}

func (m *mockSource) MarkWalletSynced(_ context.Context, walletID int64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, walletID)
	return nil
}

type mockResolver struct {
	entries map[int64][]domain.BalanceEntry
	diags   map[int64][]string
	errs    map[int64]error
}

func (m *mockResolver) Resolve(_ context.Context, w domain.Wallet, _ []domain.Token) ([]domain.BalanceEntry, []string, error) {
	if err := m.errs[w.ID]; err != nil {
		return nil, nil, err
	}
	return m.entries[w.ID], m.diags[w.ID], nil
}

type mockPrices struct {
	quotes map[string]domain.PriceQuote
	diags  []string
	asked  []string
}

func (m *mockPrices) Fetch(_ context.Context, symbols []string) (map[string]domain.PriceQuote, []string) {
	m.asked = symbols
	out := make(map[string]domain.PriceQuote, len(symbols))
	for _, s := range symbols {
		if q, ok := m.quotes[s]; ok {
			out[s] = q
		} else {
			out[s] = domain.ZeroQuote(s)
		}
	}
	return out, m.diags
}

type mockSink struct {
	mu        sync.Mutex
	records   []domain.FinancialRecord
	duplicate map[string]bool
	err       error
}

func (m *mockSink) Write(_ context.Context, rec domain.FinancialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.duplicate[rec.Symbol] {
		return record.ErrDuplicate
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockSink) find(t *testing.T, symbol string) domain.FinancialRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Symbol == symbol {
			return r
		}
	}
	t.Fatalf("no record for %s", symbol)
	return domain.FinancialRecord{}
}

type mockRuns struct {
	mu    sync.Mutex
	saved []domain.RunSummary
}

func (m *mockRuns) Save(_ context.Context, s domain.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockRuns) Latest(context.Context) (*domain.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil, ErrNoRuns
	}
	return &m.saved[len(m.saved)-1], nil
}

func quote(symbol string, price int64) domain.PriceQuote {
	return domain.PriceQuote{Symbol: symbol, PriceUSD: decimal.NewFromInt(price), UpdatedAt: time.Now()}
}

func entry(walletID int64, symbol string, qty decimal.Decimal) domain.BalanceEntry {
	return domain.BalanceEntry{WalletID: walletID, Symbol: symbol, Network: domain.NetworkEthereum, Quantity: qty}
}

func ethFixture() (*mockSource, *mockResolver, *mockPrices) {
	source := &mockSource{
		wallets: []domain.Wallet{
			{ID: 1, Name: "treasury", Network: domain.NetworkEthereum, Address: "0xaaa", Active: true},
		},
		tokens: []domain.Token{
			{ID: 1, Symbol: "USDT", Network: domain.NetworkEthereum, Contract: "0xdac1", Decimals: 6, Active: true},
		},
	}
	resolver := &mockResolver{entries: map[int64][]domain.BalanceEntry{
		1: {
			entry(1, "ETH", decimal.NewFromInt(2)),
			entry(1, "USDT", decimal.NewFromInt(5)),
		},
	}}
	prices := &mockPrices{quotes: map[string]domain.PriceQuote{
		"ETH":  quote("ETH", 3000),
		"USDT": quote("USDT", 1),
	}}
	return source, resolver, prices
}

func TestExecuteValuesBalances(t *testing.T) {
	source, resolver, prices := ethFixture()
	sink := &mockSink{}
	runs := &mockRuns{}
	o := NewOrchestrator(source, resolver, prices, sink, runs, Options{Concurrency: 2})

	summary := o.Execute(context.Background(), domain.TriggerManual)
	if !summary.Success {
		t.Fatalf("run failed: %v", summary.Errors)
	}
	if summary.WalletsProcessed != 1 {
		t.Errorf("wallets processed = %d, want 1", summary.WalletsProcessed)
	}
	if summary.RecordsWritten != 2 {
		t.Errorf("records written = %d, want 2", summary.RecordsWritten)
	}

	eth := sink.find(t, "ETH")
	if !eth.ValueUSD.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("ETH value = %s, want 6000 (2 × 3000)", eth.ValueUSD)
	}
	if eth.Status != domain.RecordStatusOK {
		t.Errorf("ETH status = %s, want ok", eth.Status)
	}
	usdt := sink.find(t, "USDT")
	if !usdt.ValueUSD.Equal(decimal.NewFromInt(5)) {
		t.Errorf("USDT value = %s, want 5 (5 × 1)", usdt.ValueUSD)
	}

	// Records of one run share the run's start timestamp.
	if !eth.Timestamp.Equal(summary.StartedAt) || !usdt.Timestamp.Equal(summary.StartedAt) {
		t.Error("records must carry the run's start time")
	}

	if len(runs.saved) != 1 {
		t.Fatalf("run summaries saved = %d, want 1", len(runs.saved))
	}
	if len(source.synced) != 1 || source.synced[0] != 1 {
		t.Errorf("synced wallets = %v, want [1]", source.synced)
	}
}

func TestExecuteFractionalValue(t *testing.T) {
	source, _, prices := ethFixture()
	half, _ := decimal.NewFromString("3.5")
	resolver := &mockResolver{entries: map[int64][]domain.BalanceEntry{
		1: {entry(1, "TOK", half)},
	}}
	prices.quotes = map[string]domain.PriceQuote{"TOK": quote("TOK", 100)}
	sink := &mockSink{}
	o := NewOrchestrator(source, resolver, prices, sink, &mockRuns{}, Options{})

	o.Execute(context.Background(), domain.TriggerManual)
	rec := sink.find(t, "TOK")
	if !rec.ValueUSD.Equal(decimal.NewFromInt(350)) {
		t.Errorf("value = %s, want 350 (3.5 × 100)", rec.ValueUSD)
	}
}

func TestExecuteMissingPriceDegradesRecord(t *testing.T) {
	source, resolver, _ := ethFixture()
	prices := &mockPrices{quotes: map[string]domain.PriceQuote{"ETH": quote("ETH", 3000)}}
	sink := &mockSink{}
	o := NewOrchestrator(source, resolver, prices, sink, &mockRuns{}, Options{})

	summary := o.Execute(context.Background(), domain.TriggerManual)
	if !summary.Success {
		t.Fatalf("run failed: %v", summary.Errors)
	}

	usdt := sink.find(t, "USDT")
	if !usdt.ValueUSD.IsZero() {
		t.Errorf("USDT value = %s, want 0 under a zero quote", usdt.ValueUSD)
	}
	if usdt.Status != domain.RecordStatusDegraded {
		t.Errorf("USDT status = %s, want degraded", usdt.Status)
	}
	if sink.find(t, "ETH").Status != domain.RecordStatusOK {
		t.Error("priced record must stay ok")
	}
}

func TestExecuteWalletFailureIsIsolated(t *testing.T) {
	source, _, prices := ethFixture()
	source.wallets = []domain.Wallet{
		{ID: 1, Name: "w1", Network: domain.NetworkEthereum, Address: "0xaaa", Active: true},
		{ID: 2, Name: "w2", Network: "unknownnet", Address: "0xbbb", Active: true},
		{ID: 3, Name: "w3", Network: domain.NetworkEthereum, Address: "0xccc", Active: true},
	}
	resolver := &mockResolver{
		entries: map[int64][]domain.BalanceEntry{
			1: {entry(1, "ETH", decimal.NewFromInt(1))},
			3: {entry(3, "ETH", decimal.NewFromInt(3))},
		},
		errs: map[int64]error{2: errors.New(`unsupported network "unknownnet"`)},
	}
	sink := &mockSink{}
	o := NewOrchestrator(source, resolver, prices, sink, &mockRuns{}, Options{Concurrency: 3})

	summary := o.Execute(context.Background(), domain.TriggerScheduled)
	if !summary.Success {
		t.Fatal("two healthy wallets must make the run successful")
	}
	if summary.WalletsProcessed != 2 {
		t.Errorf("wallets processed = %d, want 2", summary.WalletsProcessed)
	}
	if summary.RecordsWritten != 2 {
		t.Errorf("records written = %d, want 2", summary.RecordsWritten)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], "w2") {
		t.Errorf("errors = %v, want one naming w2", summary.Errors)
	}
}

func TestExecuteFatalConfig(t *testing.T) {
	source := &mockSource{walletsErr: errors.New("db down")}
	sink := &mockSink{}
	runs := &mockRuns{}
	o := NewOrchestrator(source, &mockResolver{}, &mockPrices{}, sink, runs, Options{})

	summary := o.Execute(context.Background(), domain.TriggerManual)
	if summary.Success {
		t.Fatal("fatal config must fail the run")
	}
	if summary.RecordsWritten != 0 || len(sink.records) != 0 {
		t.Error("fatal config must emit no records")
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], "fatal") {
		t.Errorf("errors = %v, want a fatal config error", summary.Errors)
	}
	// Failed runs still land in the run log.
	if len(runs.saved) != 1 {
		t.Errorf("run summaries saved = %d, want 1", len(runs.saved))
	}
}

func TestExecuteEmptyWalletSetIsFatal(t *testing.T) {
	source := &mockSource{tokens: []domain.Token{{ID: 1, Symbol: "USDT", Network: domain.NetworkEthereum, Active: true}}}
	o := NewOrchestrator(source, &mockResolver{}, &mockPrices{}, &mockSink{}, &mockRuns{}, Options{})

	summary := o.Execute(context.Background(), domain.TriggerManual)
	if summary.Success {
		t.Fatal("a run with no wallets must fail")
	}
}

func TestExecuteDryRunParity(t *testing.T) {
	source, resolver, prices := ethFixture()
	sink := &mockSink{}
	o := NewOrchestrator(source, resolver, prices, sink, &mockRuns{}, Options{DryRun: true})

	dry := o.Execute(context.Background(), domain.TriggerManual)
	if len(sink.records) != 0 {
		t.Fatalf("dry run wrote %d records", len(sink.records))
	}

	source2, resolver2, prices2 := ethFixture()
	live := NewOrchestrator(source2, resolver2, prices2, sink, &mockRuns{}, Options{}).
		Execute(context.Background(), domain.TriggerManual)

	if dry.RecordsWritten != live.RecordsWritten {
		t.Errorf("dry counted %d records, live %d; counts must match", dry.RecordsWritten, live.RecordsWritten)
	}
	if dry.WalletsProcessed != live.WalletsProcessed {
		t.Errorf("dry processed %d wallets, live %d", dry.WalletsProcessed, live.WalletsProcessed)
	}
}

func TestExecuteDuplicateIsSuppressedSilently(t *testing.T) {
	source, resolver, prices := ethFixture()
	sink := &mockSink{duplicate: map[string]bool{"USDT": true}}
	o := NewOrchestrator(source, resolver, prices, sink, &mockRuns{}, Options{})

	summary := o.Execute(context.Background(), domain.TriggerManual)
	if !summary.Success {
		t.Fatalf("run failed: %v", summary.Errors)
	}
	if summary.RecordsWritten != 1 {
		t.Errorf("records written = %d, want 1 (duplicate not counted)", summary.RecordsWritten)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("errors = %v, duplicates are not errors", summary.Errors)
	}
}

func TestExecuteSinkErrorIsRecordLevel(t *testing.T) {
	source, resolver, prices := ethFixture()
	sink := &mockSink{err: errors.New("disk full")}
	o := NewOrchestrator(source, resolver, prices, sink, &mockRuns{}, Options{})

	summary := o.Execute(context.Background(), domain.TriggerManual)
	if !summary.Success {
		t.Fatal("write failures degrade the run, they do not fail it")
	}
	if summary.RecordsWritten != 0 {
		t.Errorf("records written = %d, want 0", summary.RecordsWritten)
	}
	if len(summary.Errors) != 2 {
		t.Errorf("errors = %v, want one per failed record", summary.Errors)
	}
}

func TestExecuteRequestsNativeAndTokenSymbols(t *testing.T) {
	source, resolver, prices := ethFixture()
	o := NewOrchestrator(source, resolver, prices, &mockSink{}, &mockRuns{}, Options{})

	o.Execute(context.Background(), domain.TriggerManual)
	got := make(map[string]bool, len(prices.asked))
	for _, s := range prices.asked {
		got[s] = true
	}
	if !got["ETH"] || !got["USDT"] {
		t.Errorf("price request = %v, want ETH and USDT", prices.asked)
	}
}

// unitPriceClient prices every requested symbol at 1 USD.
type unitPriceClient struct{}

func (unitPriceClient) Quotes(_ context.Context, symbols []string) (map[string]domain.PriceQuote, error) {
	out := make(map[string]domain.PriceQuote, len(symbols))
	for _, s := range symbols {
		out[s] = domain.PriceQuote{Symbol: s, PriceUSD: decimal.NewFromInt(1), UpdatedAt: time.Now()}
	}
	return out, nil
}

func TestExecutePricesLowercaseConfiguredSymbols(t *testing.T) {
	source := &mockSource{
		wallets: []domain.Wallet{
			{ID: 1, Name: "treasury", Network: domain.NetworkEthereum, Address: "0xaaa", Active: true},
		},
		tokens: []domain.Token{
			{ID: 1, Symbol: "usdt", Network: domain.NetworkEthereum, Contract: "0xdac1", Decimals: 6, Active: true},
		},
	}
	resolver := &mockResolver{entries: map[int64][]domain.BalanceEntry{
		1: {entry(1, "usdt", decimal.NewFromInt(5))},
	}}
	// The real price fetcher, so the symbol case round-trips through its
	// canonical map keys instead of a mock echoing the raw input.
	prices := pricing.NewService(unitPriceClient{}, nil,
		provider.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}, 100, 0)
	sink := &mockSink{}
	o := NewOrchestrator(source, resolver, prices, sink, &mockRuns{}, Options{})

	summary := o.Execute(context.Background(), domain.TriggerManual)
	if !summary.Success {
		t.Fatalf("run failed: %v", summary.Errors)
	}
	rec := sink.find(t, "usdt")
	if !rec.PriceUSD.Equal(decimal.NewFromInt(1)) {
		t.Errorf("price = %s, want 1 regardless of configured symbol case", rec.PriceUSD)
	}
	if !rec.ValueUSD.Equal(decimal.NewFromInt(5)) {
		t.Errorf("value = %s, want 5 (5 × 1)", rec.ValueUSD)
	}
	if rec.Status != domain.RecordStatusOK {
		t.Errorf("status = %s, want ok", rec.Status)
	}
}

func TestLatestWithoutRepository(t *testing.T) {
	o := NewOrchestrator(&mockSource{}, &mockResolver{}, &mockPrices{}, &mockSink{}, nil, Options{})
	if _, err := o.Latest(context.Background()); !errors.Is(err, ErrNoRuns) {
		t.Errorf("err = %v, want ErrNoRuns", err)
	}
}
