package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEffectiveDecimals(t *testing.T) {
	cases := []struct {
		name  string
		token Token
		want  int32
	}{
		{"configured wins", Token{Symbol: "USDT", Network: NetworkEthereum, Contract: "0xdac1", Decimals: 6}, 6},
		{"configured zero is valid", Token{Symbol: "X", Network: NetworkEthereum, Contract: "0x1", Decimals: 0}, 0},
		{"unknown contract token defaults to 18", Token{Symbol: "X", Network: NetworkTron, Contract: "Tabc", Decimals: -1}, 18},
		{"unknown native uses network precision", Token{Symbol: "TRX", Network: NetworkTron, Decimals: -1}, 6},
		{"unknown native sol", Token{Symbol: "SOL", Network: NetworkSolana, Decimals: -1}, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.token.EffectiveDecimals(); got != tc.want {
				t.Errorf("EffectiveDecimals = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestIsNative(t *testing.T) {
	if !(Token{Symbol: "ETH", Network: NetworkEthereum, Decimals: -1}).IsNative() {
		t.Error("ETH on ethereum must be native")
	}
	if (Token{Symbol: "ETH", Network: NetworkEthereum, Contract: "0x1", Decimals: -1}).IsNative() {
		t.Error("a contract token is never native even with the native symbol")
	}
	if (Token{Symbol: "USDT", Network: NetworkTron, Decimals: 6}).IsNative() {
		t.Error("USDT on tron is not native")
	}
}

func TestFromRawUnits(t *testing.T) {
	got := FromRawUnits(decimal.NewFromInt(5_000_000), 6)
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("5000000 at 6 decimals = %s, want 5", got)
	}

	wei, _ := decimal.NewFromString("1234500000000000000")
	got = FromRawUnits(wei, 18)
	want, _ := decimal.NewFromString("1.2345")
	if !got.Equal(want) {
		t.Errorf("wei conversion = %s, want 1.2345", got)
	}

	got = FromRawUnits(decimal.NewFromInt(1500), 0)
	if !got.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("zero decimals = %s, want 1500 unchanged", got)
	}
}

func TestParseHexAmount(t *testing.T) {
	v, ok := ParseHexAmount("0x1bc16d674ec80000")
	if !ok {
		t.Fatal("valid hex rejected")
	}
	want, _ := decimal.NewFromString("2000000000000000000")
	if !v.Equal(want) {
		t.Errorf("parsed = %s, want %s", v, want)
	}

	if v, ok := ParseHexAmount("0x"); !ok || !v.IsZero() {
		t.Errorf("bare 0x = (%s, %v), want (0, true)", v, ok)
	}
	if _, ok := ParseHexAmount("0xzz"); ok {
		t.Error("malformed hex accepted")
	}
}

func TestNativeSymbolAndDecimals(t *testing.T) {
	if NativeSymbol(NetworkExchange) != "" {
		t.Error("exchange namespace has no native asset")
	}
	if NativeSymbol(NetworkBSC) != "BNB" {
		t.Errorf("BSC native = %q, want BNB", NativeSymbol(NetworkBSC))
	}
	if NativeDecimals(NetworkBitcoin) != 8 {
		t.Errorf("bitcoin decimals = %d, want 8", NativeDecimals(NetworkBitcoin))
	}
	if !NetworkPolygon.IsEVM() || NetworkTron.IsEVM() {
		t.Error("IsEVM misclassifies networks")
	}
}

func TestNewFinancialRecordValue(t *testing.T) {
	qty, _ := decimal.NewFromString("3.5")
	w := Wallet{ID: 1, Name: "t", Network: NetworkEthereum, Address: "0xaaa"}
	e := BalanceEntry{WalletID: 1, Symbol: "TOK", Network: NetworkEthereum, Quantity: qty}
	q := PriceQuote{Symbol: "TOK", PriceUSD: decimal.NewFromInt(100)}

	rec := NewFinancialRecord(q.UpdatedAt, w, e, q, RecordStatusOK)
	if !rec.ValueUSD.Equal(decimal.NewFromInt(350)) {
		t.Errorf("value = %s, want 350", rec.ValueUSD)
	}
	if rec.Type != RecordSnapshot {
		t.Errorf("type = %s, want snapshot", rec.Type)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		" eth ": "ETH",
		"usdt":  "USDT",
		"BTC":   "BTC",
		"":      "",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
