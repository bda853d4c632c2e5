package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is one symbol's USD quote, recomputed once per run for the full
// distinct-symbol set. Unresolved symbols get a zero-price quote with a
// current timestamp, never a missing map entry.
type PriceQuote struct {
	Symbol       string          `json:"symbol"`
	PriceUSD     decimal.Decimal `json:"priceUsd"`
	MarketCap    decimal.Decimal `json:"marketCap"`
	Volume24h    decimal.Decimal `json:"volume24h"`
	Change24hPct decimal.Decimal `json:"change24hPct"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ZeroQuote builds the degraded quote used when a symbol could not be priced.
func ZeroQuote(symbol string) PriceQuote {
	return PriceQuote{Symbol: symbol, UpdatedAt: time.Now().UTC()}
}

// NormalizeSymbol is the canonical form of a ticker symbol for price-map
// keys. Configured symbols arrive in whatever case operators seeded them;
// quote providers answer in upper case. Every price lookup goes through this.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
