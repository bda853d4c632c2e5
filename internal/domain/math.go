package domain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// SafeParse parses a string into a decimal, returning zero for invalid or
// empty input. Provider payloads frequently carry amounts as strings.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseHexAmount decodes a 0x-prefixed big-endian hex integer (the JSON-RPC
// quantity encoding) into a decimal. Returns false on malformed input.
func ParseHexAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return decimal.Zero, true
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(v, 0), true
}
