package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const exchangeAccountsPath = "/api/v1/accounts"

// ExchangeClient reads account balances from a signed-request exchange API.
// The exchange enumerates holdings itself, so the exchange namespace is a
// discovery-only network: balances arrive in display units, not raw units.
type ExchangeClient struct {
	name    string
	baseURL string
	signer  *Signer
	http    *http.Client
}

// NewExchangeClient creates an exchange client for one credential set.
func NewExchangeClient(name, baseURL string, signer *Signer, timeout time.Duration) *ExchangeClient {
	return &ExchangeClient{name: name, baseURL: baseURL, signer: signer, http: newHTTPClient(timeout)}
}

type exchangeAccount struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

type exchangeAccountsResponse struct {
	Data []exchangeAccount `json:"data"`
}

// Balances enumerates every non-zero holding of the account. Rejected
// credentials surface as a permanent failure via the status classification.
func (c *ExchangeClient) Balances(ctx context.Context) ([]Holding, error) {
	const op = "accounts"
	headers := c.signer.Headers(http.MethodGet, exchangeAccountsPath, "")
	var resp exchangeAccountsResponse
	if err := getJSON(ctx, c.http, c.name, op, c.baseURL+exchangeAccountsPath, headers, &resp); err != nil {
		return nil, err
	}
	var holdings []Holding
	for _, acc := range resp.Data {
		v, err := decimal.NewFromString(acc.Balance)
		if err != nil {
			return nil, Transient(c.name, op, fmt.Errorf("malformed balance %q for %s", acc.Balance, acc.Currency))
		}
		if v.IsZero() {
			continue
		}
		// Display units already; no raw-to-decimal shift applies.
		holdings = append(holdings, Holding{Symbol: acc.Currency, Raw: v, Decimals: 0})
	}
	return holdings, nil
}
