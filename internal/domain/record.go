package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordType classifies emitted records. Only point-in-time snapshots exist.
type RecordType string

const RecordSnapshot RecordType = "snapshot"

// RecordStatus marks how a record's data was obtained.
type RecordStatus string

const (
	RecordStatusOK       RecordStatus = "ok"
	RecordStatusDegraded RecordStatus = "degraded"
)

// FinancialRecord is one output row: a wallet's holding of one asset valued
// in USD at a point in time. Immutable once constructed; ownership passes to
// the record sink on emission. ValueUSD is always the product of the
// same-run quantity and price.
type FinancialRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      RecordType      `json:"type"`
	Network   Network         `json:"network"`
	Symbol    string          `json:"symbol"`
	Address   string          `json:"address"`
	Quantity  decimal.Decimal `json:"quantity"`
	PriceUSD  decimal.Decimal `json:"priceUsd"`
	ValueUSD  decimal.Decimal `json:"valueUsd"`
	Status    RecordStatus    `json:"status"`
}

// NewFinancialRecord values a balance entry against its same-run quote.
func NewFinancialRecord(ts time.Time, w Wallet, e BalanceEntry, q PriceQuote, status RecordStatus) FinancialRecord {
	return FinancialRecord{
		Timestamp: ts,
		Type:      RecordSnapshot,
		Network:   e.Network,
		Symbol:    e.Symbol,
		Address:   w.Address,
		Quantity:  e.Quantity,
		PriceUSD:  q.PriceUSD,
		ValueUSD:  e.Quantity.Mul(q.PriceUSD),
		Status:    status,
	}
}
