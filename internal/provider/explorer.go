package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExplorerClient queries an etherscan-style block explorer API. Explorers
// are the enrichment fallback tier for EVM networks: slower and key-gated,
// but independent of public RPC availability.
type ExplorerClient struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewExplorerClient creates an explorer client. apiKey may be empty for the
// public anonymous tier.
func NewExplorerClient(name, baseURL, apiKey string, timeout time.Duration) *ExplorerClient {
	return &ExplorerClient{name: name, baseURL: baseURL, apiKey: apiKey, http: newHTTPClient(timeout)}
}

// Name identifies the client in chain diagnostics.
func (c *ExplorerClient) Name() string { return c.name }

type explorerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func (c *ExplorerClient) query(ctx context.Context, op string, params url.Values) (decimal.Decimal, error) {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	var resp explorerResponse
	reqURL := c.baseURL + "?" + params.Encode()
	if err := getJSON(ctx, c.http, c.name, op, reqURL, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Status != "1" {
		return decimal.Zero, classifyExplorerError(c.name, op, resp)
	}
	v, err := decimal.NewFromString(resp.Result)
	if err != nil {
		return decimal.Zero, Transient(c.name, op, fmt.Errorf("malformed quantity %q", resp.Result))
	}
	return v, nil
}

// classifyExplorerError maps the explorer's status=0 replies. Etherscan
// signals rate limiting inside the result string with HTTP 200.
func classifyExplorerError(name, op string, resp explorerResponse) *Error {
	err := fmt.Errorf("%s: %s", resp.Message, resp.Result)
	lower := strings.ToLower(resp.Result + " " + resp.Message)
	switch {
	case strings.Contains(lower, "rate limit"):
		return RateLimited(name, op, err)
	case strings.Contains(lower, "invalid"):
		return Permanent(name, op, err)
	default:
		return Transient(name, op, err)
	}
}

// NativeBalance returns the address's native balance in the chain's smallest
// unit (module=account&action=balance).
func (c *ExplorerClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "balance")
	params.Set("address", address)
	params.Set("tag", "latest")
	return c.query(ctx, "explorer/balance", params)
}

// TokenBalance returns the address's raw token balance for one contract
// (module=account&action=tokenbalance).
func (c *ExplorerClient) TokenBalance(ctx context.Context, address, contract string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokenbalance")
	params.Set("address", address)
	params.Set("contractaddress", contract)
	params.Set("tag", "latest")
	return c.query(ctx, "explorer/tokenbalance", params)
}
