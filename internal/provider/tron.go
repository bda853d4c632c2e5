package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TronClient reads account state from a TronGrid-compatible API. One
// getaccount call reports the native balance and every TRC-20 holding, so
// tron supports account-wide token discovery.
type TronClient struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewTronClient creates a TronGrid client. apiKey may be empty for the
// public tier.
func NewTronClient(name, baseURL, apiKey string, timeout time.Duration) *TronClient {
	return &TronClient{name: name, baseURL: baseURL, apiKey: apiKey, http: newHTTPClient(timeout)}
}

type tronAccount struct {
	Balance decimal.Decimal     `json:"balance"`
	TRC20   []map[string]string `json:"trc20"`
}

func (c *TronClient) getAccount(ctx context.Context, op, address string) (tronAccount, error) {
	if !strings.HasPrefix(address, "T") || len(address) != 34 {
		return tronAccount{}, Permanent(c.name, op, fmt.Errorf("invalid tron address %q", address))
	}
	payload := map[string]any{"address": address, "visible": true}
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"TRON-PRO-API-KEY": c.apiKey}
	}

	var acc tronAccount
	url := c.baseURL + "/wallet/getaccount"
	if err := postJSON(ctx, c.http, c.name, op, url, headers, payload, &acc); err != nil {
		return tronAccount{}, err
	}
	return acc, nil
}

// NativeBalance returns the account's TRX balance in sun. An account absent
// from the chain state comes back as an empty object, which is a confirmed
// zero balance, not a failure.
func (c *TronClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	acc, err := c.getAccount(ctx, "getaccount/native", address)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// TokenBalance returns the raw TRC-20 balance for one contract.
func (c *TronClient) TokenBalance(ctx context.Context, address, contract string) (decimal.Decimal, error) {
	acc, err := c.getAccount(ctx, "getaccount/trc20", address)
	if err != nil {
		return decimal.Zero, err
	}
	for _, entry := range acc.TRC20 {
		if raw, ok := entry[contract]; ok {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return decimal.Zero, Transient(c.name, "getaccount/trc20", fmt.Errorf("malformed amount %q", raw))
			}
			return v, nil
		}
	}
	// The account exists but holds none of this token: confirmed zero.
	return decimal.Zero, nil
}

// Discover enumerates every TRC-20 holding of the account. The chain
// reports contracts only; symbols are resolved against configuration by the
// caller.
func (c *TronClient) Discover(ctx context.Context, address string) ([]Holding, error) {
	acc, err := c.getAccount(ctx, "getaccount/discover", address)
	if err != nil {
		return nil, err
	}
	var holdings []Holding
	for _, entry := range acc.TRC20 {
		for contract, raw := range entry {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				continue
			}
			holdings = append(holdings, Holding{Contract: contract, Raw: v, Decimals: -1})
		}
	}
	return holdings, nil
}
