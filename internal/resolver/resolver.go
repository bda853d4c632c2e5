// Package resolver turns one wallet and its configured token set into a
// complete list of balance entries, walking the per-network provider
// fallback chains and filling gaps with zero entries.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/provider"
)

// ProviderRegistry is the subset of the registry the resolver needs;
// narrowed to an interface so tests can substitute synthetic chains.
type ProviderRegistry interface {
	Supports(n domain.Network) bool
	NativeChain(w domain.Wallet) (provider.Chain, bool)
	TokenChain(w domain.Wallet, t domain.Token) provider.Chain
	Discoverer(w domain.Wallet) provider.DiscoverFunc
}

// Service resolves balances for one wallet at a time. Instances are
// stateless and safe for concurrent use across wallets.
type Service struct {
	reg ProviderRegistry
}

// NewService creates a balance resolver over the given provider registry.
func NewService(reg ProviderRegistry) *Service {
	return &Service{reg: reg}
}

// entryKey identifies an asset within one network: symbol plus contract, so
// that two tokens sharing a symbol on the same network stay distinct.
func entryKey(symbol, contract string) string {
	return strings.ToUpper(symbol) + "|" + strings.ToLower(contract)
}

// Resolve produces exactly one balance entry per configured active token on
// the wallet's network (plus the native asset, plus any discovered holdings
// not explicitly configured). Provider failures degrade individual entries
// to zero and are returned as diagnostics; the only hard error is an
// unsupported network, which the orchestrator records as a wallet-level
// run error.
func (s *Service) Resolve(ctx context.Context, w domain.Wallet, tokens []domain.Token) ([]domain.BalanceEntry, []string, error) {
	if !s.reg.Supports(w.Network) {
		return nil, nil, fmt.Errorf("unsupported network %q for wallet %s", w.Network, w.Name)
	}

	active := lo.Filter(tokens, func(t domain.Token, _ int) bool {
		return t.Active && t.Network == w.Network
	})

	var entries []domain.BalanceEntry
	var diags []string
	confirmed := make(map[string]bool)
	index := make(map[string]int)

	put := func(e domain.BalanceEntry, isConfirmed bool) {
		k := entryKey(e.Symbol, e.Contract)
		if i, ok := index[k]; ok {
			// Keep a confirmed quantity over an unconfirmed zero.
			if isConfirmed && !confirmed[k] {
				entries[i] = e
				confirmed[k] = true
			}
			return
		}
		index[k] = len(entries)
		entries = append(entries, e)
		confirmed[k] = isConfirmed
	}

	// Native asset first.
	if chain, ok := s.reg.NativeChain(w); ok {
		out := chain.Resolve(ctx)
		diags = append(diags, out.Failures...)
		dec := domain.NativeDecimals(w.Network)
		put(domain.BalanceEntry{
			WalletID: w.ID,
			Symbol:   domain.NativeSymbol(w.Network),
			Network:  w.Network,
			Quantity: domain.FromRawUnits(out.Quantity, dec),
			Decimals: dec,
		}, out.Confirmed)
	}

	// Configured tokens, independently: one token's failure never blocks
	// the rest.
	for _, t := range active {
		if ctx.Err() != nil {
			break
		}
		if t.IsNative() {
			continue // already covered by the native chain
		}
		chain := s.reg.TokenChain(w, t)
		if len(chain.Sources) == 0 {
			continue // no provider can answer; discovery or gap-fill covers it
		}
		out := chain.Resolve(ctx)
		diags = append(diags, out.Failures...)
		put(domain.BalanceEntry{
			WalletID: w.ID,
			Symbol:   t.Symbol,
			Network:  w.Network,
			Quantity: domain.FromRawUnits(out.Quantity, t.EffectiveDecimals()),
			Contract: t.Contract,
			Decimals: t.EffectiveDecimals(),
		}, out.Confirmed)
	}

	// Account-wide discovery where the network supports it. Discovered
	// holdings merge keyed by symbol+contract so configured tokens are not
	// duplicated.
	if disc := s.reg.Discoverer(w); disc != nil && ctx.Err() == nil {
		holdings, err := disc(ctx)
		if err != nil {
			diags = append(diags, fmt.Sprintf("discovery for %s: %v", w.Name, err))
		} else {
			s.mergeDiscovered(w, active, holdings, put)
		}
	}

	// Gap-fill: every configured active token must have an entry even under
	// total provider failure. A token that silently stops appearing would
	// otherwise be indistinguishable from a zero balance.
	for _, t := range active {
		put(domain.BalanceEntry{
			WalletID: w.ID,
			Symbol:   t.Symbol,
			Network:  w.Network,
			Quantity: decimal.Zero,
			Contract: t.Contract,
			Decimals: t.EffectiveDecimals(),
		}, false)
	}

	return entries, diags, nil
}

// mergeDiscovered maps raw discovered holdings onto configured token
// metadata when possible (by contract, or by symbol for contract-less
// exchange holdings) and adds the rest under their reported identity.
func (s *Service) mergeDiscovered(w domain.Wallet, active []domain.Token, holdings []provider.Holding, put func(domain.BalanceEntry, bool)) {
	byContract := lo.KeyBy(
		lo.Filter(active, func(t domain.Token, _ int) bool { return t.Contract != "" }),
		func(t domain.Token) string { return strings.ToLower(t.Contract) })
	bySymbol := lo.KeyBy(active, func(t domain.Token) string { return strings.ToUpper(t.Symbol) })

	for _, h := range holdings {
		symbol := h.Symbol
		contract := h.Contract
		decimals := h.Decimals

		if t, ok := byContract[strings.ToLower(contract)]; ok && contract != "" {
			symbol = t.Symbol
			if decimals < 0 {
				decimals = t.EffectiveDecimals()
			}
		} else if t, ok := bySymbol[strings.ToUpper(symbol)]; ok && contract == "" && symbol != "" {
			decimals = t.EffectiveDecimals()
			if h.Decimals >= 0 {
				decimals = h.Decimals
			}
			contract = t.Contract
		}
		if symbol == "" {
			symbol = shortContractTag(contract)
		}
		if symbol == "" {
			continue
		}
		if decimals < 0 {
			decimals = domain.DefaultTokenDecimals
		}

		put(domain.BalanceEntry{
			WalletID: w.ID,
			Symbol:   symbol,
			Network:  w.Network,
			Quantity: domain.FromRawUnits(h.Raw, decimals),
			Contract: contract,
			Decimals: decimals,
		}, true)
	}
}

// shortContractTag derives a stable placeholder symbol for a discovered
// holding the configuration knows nothing about.
func shortContractTag(contract string) string {
	if contract == "" {
		return ""
	}
	if len(contract) <= 8 {
		return strings.ToUpper(contract)
	}
	return strings.ToUpper(contract[:8])
}
