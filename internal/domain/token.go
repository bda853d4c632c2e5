package domain

// Token is a configured asset on one network. The same symbol may exist on
// several networks (USDT alone lives on five); (Symbol, Network) is the
// identity, never Symbol alone. Contract is empty for native assets.
//
// Decimals below zero means "not configured"; EffectiveDecimals applies the
// defaults: the network's native precision for native assets, 18 for
// contract-style tokens.
type Token struct {
	ID       int64   `json:"id"`
	Symbol   string  `json:"symbol"`
	Network  Network `json:"network"`
	Contract string  `json:"contract,omitempty"`
	Decimals int32   `json:"decimals"`
	Active   bool    `json:"active"`
}

// IsNative reports whether the token is the network's base currency.
func (t Token) IsNative() bool {
	return t.Contract == "" && t.Symbol == NativeSymbol(t.Network)
}

// EffectiveDecimals returns the configured precision, or the documented
// default when the precision is unknown.
func (t Token) EffectiveDecimals() int32 {
	if t.Decimals >= 0 {
		return t.Decimals
	}
	if t.IsNative() {
		return NativeDecimals(t.Network)
	}
	return DefaultTokenDecimals
}
