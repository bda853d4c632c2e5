package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// BitcoinClient reads address balances from a Blockstream-compatible REST
// API. Bitcoin carries no contract tokens; only the native chain uses it.
type BitcoinClient struct {
	name    string
	baseURL string
	http    *http.Client
}

// NewBitcoinClient creates a client for one esplora-style endpoint.
func NewBitcoinClient(name, baseURL string, timeout time.Duration) *BitcoinClient {
	return &BitcoinClient{name: name, baseURL: baseURL, http: newHTTPClient(timeout)}
}

type esploraAddress struct {
	ChainStats struct {
		FundedSum decimal.Decimal `json:"funded_txo_sum"`
		SpentSum  decimal.Decimal `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

// NativeBalance returns the confirmed balance of the address in satoshis.
func (c *BitcoinClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	const op = "address/stats"
	if address == "" {
		return decimal.Zero, Permanent(c.name, op, fmt.Errorf("empty address"))
	}
	var resp esploraAddress
	if err := getJSON(ctx, c.http, c.name, op, c.baseURL+"/address/"+address, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.ChainStats.FundedSum.Sub(resp.ChainStats.SpentSum), nil
}
