package domain

import "github.com/shopspring/decimal"

// BalanceEntry is one resolved (wallet, token) quantity. Entries are
// produced transiently per resolver invocation and never persisted directly.
// After resolution exactly one entry exists per configured active token on
// the wallet's network: missing provider data maps to quantity zero, never
// to an absent entry.
type BalanceEntry struct {
	WalletID int64
	Symbol   string
	Network  Network
	Quantity decimal.Decimal
	Contract string
	Decimals int32
}

// FromRawUnits converts a provider-reported integer amount into a decimal
// quantity using the token's precision (5_000_000 raw at 6 decimals → 5).
func FromRawUnits(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}
