// Package run drives one aggregation run end to end: load configuration,
// fetch prices once, resolve every active wallet independently, emit
// financial records and finalize a run summary.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/record"
)

// State names the orchestrator's phases. No state is resumable across runs;
// every run starts at StateInit.
type State string

const (
	StateInit              State = "INIT"
	StateLoadingConfig     State = "LOADING_CONFIG"
	StateFetchingPrices    State = "FETCHING_PRICES"
	StateProcessingWallets State = "PROCESSING_WALLETS"
	StateFinalizing        State = "FINALIZING"
	StateDone              State = "DONE"
)

// ConfigSource provides the run's read-only configuration snapshot.
type ConfigSource interface {
	ActiveWallets(ctx context.Context) ([]domain.Wallet, error)
	ActiveTokens(ctx context.Context) ([]domain.Token, error)
	MarkWalletSynced(ctx context.Context, walletID int64, at time.Time) error
}

// BalanceResolver resolves one wallet's complete balance entry set.
type BalanceResolver interface {
	Resolve(ctx context.Context, w domain.Wallet, tokens []domain.Token) ([]domain.BalanceEntry, []string, error)
}

// PriceFetcher returns a total symbol→quote map plus diagnostics.
type PriceFetcher interface {
	Fetch(ctx context.Context, symbols []string) (map[string]domain.PriceQuote, []string)
}

// RunRepository persists run summaries and answers the latest-run query.
type RunRepository interface {
	Save(ctx context.Context, s domain.RunSummary) error
	Latest(ctx context.Context) (*domain.RunSummary, error)
}

// Options are the run-behaviour flags the orchestrator consumes.
type Options struct {
	DryRun      bool
	Concurrency int
	Timeout     time.Duration
}

// Orchestrator owns the run state machine, the error list and the record
// counters. It is the only component that mutates wallet last-sync state.
type Orchestrator struct {
	source   ConfigSource
	resolver BalanceResolver
	prices   PriceFetcher
	sink     record.Sink
	runs     RunRepository
	opts     Options
}

// NewOrchestrator wires a run orchestrator. runs may be nil when no run log
// is kept (one-shot CLI invocations against a dry sink).
func NewOrchestrator(source ConfigSource, resolver BalanceResolver, prices PriceFetcher, sink record.Sink, runs RunRepository, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Orchestrator{
		source:   source,
		resolver: resolver,
		prices:   prices,
		sink:     sink,
		runs:     runs,
		opts:     opts,
	}
}

// Execute performs one full run. It never returns an error: degraded runs
// carry their error list inside the summary, and only missing configuration
// is fatal (zero records, success=false).
func (o *Orchestrator) Execute(ctx context.Context, trigger domain.TriggerType) domain.RunSummary {
	summary := domain.RunSummary{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}
	log := slog.With("run", summary.ID.String(), "trigger", trigger)
	o.transition(log, StateLoadingConfig)

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	wallets, tokens, fatal := o.loadConfig(ctx)
	if fatal != nil {
		summary.Errors = append(summary.Errors, fatal.Error())
		return o.finalize(ctx, log, summary)
	}

	o.transition(log, StateFetchingPrices)
	prices, priceDiags := o.prices.Fetch(ctx, runSymbols(wallets, tokens))
	summary.Errors = append(summary.Errors, priceDiags...)

	o.transition(log, StateProcessingWallets)
	o.processWallets(ctx, log, &summary, wallets, tokens, prices)

	return o.finalize(ctx, log, summary)
}

// Latest returns the most recent run summary, or ErrNoRuns.
func (o *Orchestrator) Latest(ctx context.Context) (*domain.RunSummary, error) {
	if o.runs == nil {
		return nil, ErrNoRuns
	}
	return o.runs.Latest(ctx)
}

func (o *Orchestrator) transition(log *slog.Logger, to State) {
	log.Info("run state", "state", to)
}

// loadConfig fetches the run's configuration snapshot. An empty wallet or
// token set is a fatal-config condition: the run cannot produce anything
// meaningful and goes straight to DONE.
func (o *Orchestrator) loadConfig(ctx context.Context) ([]domain.Wallet, []domain.Token, error) {
	wallets, err := o.source.ActiveWallets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fatal: loading wallets: %w", err)
	}
	if len(wallets) == 0 {
		return nil, nil, errors.New("fatal: no active wallets configured")
	}
	tokens, err := o.source.ActiveTokens(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fatal: loading tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, nil, errors.New("fatal: no active tokens configured")
	}
	return wallets, tokens, nil
}

// runSymbols collects the distinct symbols the run needs priced: every
// network's native asset plus every active token symbol.
func runSymbols(wallets []domain.Wallet, tokens []domain.Token) []string {
	symbols := lo.FilterMap(wallets, func(w domain.Wallet, _ int) (string, bool) {
		s := domain.NativeSymbol(w.Network)
		return s, s != ""
	})
	symbols = append(symbols, lo.Map(tokens, func(t domain.Token, _ int) string {
		return t.Symbol
	})...)
	return lo.Uniq(symbols)
}

// processWallets resolves wallets through a bounded worker pool. The error
// list and counters are appended under the orchestrator's mutex; the price
// map was published before the pool starts and is read-only here. A
// cancelled context stops scheduling further wallets, and in-flight ones
// drain into a partial result.
func (o *Orchestrator) processWallets(ctx context.Context, log *slog.Logger, summary *domain.RunSummary, wallets []domain.Wallet, tokens []domain.Token, prices map[string]domain.PriceQuote) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.opts.Concurrency)
	)

	for _, w := range wallets {
		if ctx.Err() != nil {
			mu.Lock()
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("wallet %s skipped: %v", w.Name, ctx.Err()))
			mu.Unlock()
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(w domain.Wallet) {
			defer wg.Done()
			defer func() { <-sem }()

			written, errs, ok := o.processWallet(ctx, log, w, tokens, prices, summary.StartedAt)

			mu.Lock()
			summary.Errors = append(summary.Errors, errs...)
			summary.RecordsWritten += written
			if ok {
				summary.WalletsProcessed++
			}
			mu.Unlock()
		}(w)
	}
	wg.Wait()
}

// processWallet resolves one wallet and emits its records. Wallet-level
// failures are returned as run errors, never raised: one broken wallet
// cannot block collection for the rest.
func (o *Orchestrator) processWallet(ctx context.Context, log *slog.Logger, w domain.Wallet, tokens []domain.Token, prices map[string]domain.PriceQuote, runAt time.Time) (written int, errs []string, ok bool) {
	entries, diags, err := o.resolver.Resolve(ctx, w, tokens)
	if err != nil {
		return 0, []string{fmt.Sprintf("wallet %s: %v", w.Name, err)}, false
	}
	errs = append(errs, diags...)

	for _, e := range entries {
		// The price map is keyed by the canonical symbol form; configured
		// symbols may carry any case.
		quote, found := prices[domain.NormalizeSymbol(e.Symbol)]
		if !found {
			quote = domain.ZeroQuote(e.Symbol)
		}
		status := domain.RecordStatusOK
		if quote.PriceUSD.IsZero() {
			status = domain.RecordStatusDegraded
		}
		rec := domain.NewFinancialRecord(runAt, w, e, quote, status)

		if o.opts.DryRun {
			// Dry-run logs the would-be record but still counts it, so dry
			// and live runs report identical volumes for identical input.
			log.Info("dry-run record",
				"wallet", w.Name, "network", rec.Network, "symbol", rec.Symbol,
				"quantity", rec.Quantity.String(), "value_usd", rec.ValueUSD.String())
			written++
			continue
		}

		switch err := o.sink.Write(ctx, rec); {
		case err == nil:
			written++
		case errors.Is(err, record.ErrDuplicate):
			log.Debug("duplicate record suppressed",
				"wallet", w.Name, "symbol", rec.Symbol)
		default:
			errs = append(errs, fmt.Sprintf("wallet %s: writing %s record: %v", w.Name, rec.Symbol, err))
		}
	}

	if written == 0 {
		log.Info("wallet processed with zero records", "wallet", w.Name)
	}
	if err := o.source.MarkWalletSynced(ctx, w.ID, time.Now().UTC()); err != nil {
		log.Warn("failed to update wallet sync time", "wallet", w.Name, "error", err)
	}
	return written, errs, true
}

// finalize closes the summary and persists it. Success means at least one
// wallet was fully processed, independent of recorded errors.
func (o *Orchestrator) finalize(ctx context.Context, log *slog.Logger, summary domain.RunSummary) domain.RunSummary {
	o.transition(log, StateFinalizing)
	summary.FinishedAt = time.Now().UTC()
	summary.Success = summary.WalletsProcessed >= 1

	if o.runs != nil {
		// The run log write must survive a cancelled run context.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := o.runs.Save(saveCtx, summary); err != nil {
			log.Error("failed to persist run summary", "error", err)
		}
	}

	o.transition(log, StateDone)
	log.Info("run finished",
		"success", summary.Success,
		"wallets", summary.WalletsProcessed,
		"records", summary.RecordsWritten,
		"errors", len(summary.Errors))
	return summary
}
