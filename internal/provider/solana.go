package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// splTokenProgram is the SPL token program account owning all token accounts.
const splTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// SolanaClient speaks Solana JSON-RPC. getTokenAccountsByOwner enumerates
// every SPL holding of an owner, so solana supports token discovery.
type SolanaClient struct {
	name string
	url  string
	http *http.Client
}

// NewSolanaClient creates a client for one Solana RPC endpoint.
func NewSolanaClient(name, url string, timeout time.Duration) *SolanaClient {
	return &SolanaClient{name: name, url: url, http: newHTTPClient(timeout)}
}

func (c *SolanaClient) call(ctx context.Context, op, method string, params []any, dest any) error {
	var resp rpcResponse
	payload := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	if err := postJSON(ctx, c.http, c.name, op, c.url, nil, payload, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return classifyRPCError(c.name, op, resp.Error)
	}
	if err := json.Unmarshal(resp.Result, dest); err != nil {
		return Transient(c.name, op, fmt.Errorf("unexpected result shape: %w", err))
	}
	return nil
}

// NativeBalance returns the account's SOL balance in lamports.
func (c *SolanaClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	const op = "getBalance"
	if address == "" {
		return decimal.Zero, Permanent(c.name, op, fmt.Errorf("empty address"))
	}
	var result struct {
		Value decimal.Decimal `json:"value"`
	}
	if err := c.call(ctx, op, "getBalance", []any{address}, &result); err != nil {
		return decimal.Zero, err
	}
	return result.Value, nil
}

type solTokenAccounts struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount   string `json:"amount"`
							Decimals int32  `json:"decimals"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

func (c *SolanaClient) tokenAccounts(ctx context.Context, op, address string, filter map[string]string) ([]Holding, error) {
	var result solTokenAccounts
	params := []any{address, filter, map[string]string{"encoding": "jsonParsed"}}
	if err := c.call(ctx, op, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}
	holdings := make(map[string]Holding)
	for _, acc := range result.Value {
		info := acc.Account.Data.Parsed.Info
		raw, err := decimal.NewFromString(info.TokenAmount.Amount)
		if err != nil {
			continue
		}
		// An owner may hold several token accounts for one mint; sum them.
		h := holdings[info.Mint]
		h.Contract = info.Mint
		h.Decimals = info.TokenAmount.Decimals
		h.Raw = h.Raw.Add(raw)
		holdings[info.Mint] = h
	}
	out := make([]Holding, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, h)
	}
	return out, nil
}

// TokenBalance returns the owner's raw balance for one mint. An owner with
// no token account for the mint has a confirmed zero balance.
func (c *SolanaClient) TokenBalance(ctx context.Context, address, mint string) (decimal.Decimal, error) {
	holdings, err := c.tokenAccounts(ctx, "getTokenAccountsByOwner/mint", address, map[string]string{"mint": mint})
	if err != nil {
		return decimal.Zero, err
	}
	for _, h := range holdings {
		if h.Contract == mint {
			return h.Raw, nil
		}
	}
	return decimal.Zero, nil
}

// Discover enumerates every SPL holding of the owner. The chain reports
// mints and precision but no symbols.
func (c *SolanaClient) Discover(ctx context.Context, address string) ([]Holding, error) {
	return c.tokenAccounts(ctx, "getTokenAccountsByOwner/all", address,
		map[string]string{"programId": splTokenProgram})
}
