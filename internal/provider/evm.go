package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinledger/holdings/internal/domain"
)

// erc20BalanceOf is the 4-byte selector of balanceOf(address).
const erc20BalanceOf = "0x70a08231"

var evmAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// RPCClient speaks Ethereum JSON-RPC against any EVM-compatible node. It is
// the cheap first tier of the EVM fallback chains.
type RPCClient struct {
	name string
	url  string
	http *http.Client
}

// NewRPCClient creates a JSON-RPC client for one EVM network endpoint.
func NewRPCClient(name, url string, timeout time.Duration) *RPCClient {
	return &RPCClient{name: name, url: url, http: newHTTPClient(timeout)}
}

// Name identifies the client in chain diagnostics.
func (c *RPCClient) Name() string { return c.name }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, op, method string, params ...any) (string, error) {
	var resp rpcResponse
	payload := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	if err := postJSON(ctx, c.http, c.name, op, c.url, nil, payload, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", classifyRPCError(c.name, op, resp.Error)
	}
	var result string
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", Transient(c.name, op, fmt.Errorf("unexpected result shape: %w", err))
	}
	return result, nil
}

// classifyRPCError maps JSON-RPC error codes onto the failure taxonomy:
// -32005 (limit exceeded) backs off, -32602 (invalid params) is permanent,
// everything else is worth retrying.
func classifyRPCError(name, op string, e *rpcError) *Error {
	err := fmt.Errorf("rpc error %d: %s", e.Code, e.Message)
	switch {
	case e.Code == -32005 || strings.Contains(strings.ToLower(e.Message), "rate"):
		return RateLimited(name, op, err)
	case e.Code == -32602:
		return Permanent(name, op, err)
	default:
		return Transient(name, op, err)
	}
}

// NativeBalance returns the address's native-asset balance in wei.
func (c *RPCClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	const op = "eth_getBalance"
	if !evmAddressRe.MatchString(address) {
		return decimal.Zero, Permanent(c.name, op, fmt.Errorf("invalid EVM address %q", address))
	}
	result, err := c.call(ctx, op, "eth_getBalance", address, "latest")
	if err != nil {
		return decimal.Zero, err
	}
	v, ok := domain.ParseHexAmount(result)
	if !ok {
		return decimal.Zero, Transient(c.name, op, fmt.Errorf("malformed quantity %q", result))
	}
	return v, nil
}

// TokenBalance returns the address's raw ERC-20 balance via eth_call.
func (c *RPCClient) TokenBalance(ctx context.Context, address, contract string) (decimal.Decimal, error) {
	const op = "eth_call/balanceOf"
	if !evmAddressRe.MatchString(address) {
		return decimal.Zero, Permanent(c.name, op, fmt.Errorf("invalid EVM address %q", address))
	}
	if !evmAddressRe.MatchString(contract) {
		return decimal.Zero, Permanent(c.name, op, fmt.Errorf("invalid contract address %q", contract))
	}
	data := erc20BalanceOf + strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(address, "0x"))
	result, err := c.call(ctx, op, "eth_call",
		map[string]string{"to": contract, "data": data}, "latest")
	if err != nil {
		return decimal.Zero, err
	}
	v, ok := domain.ParseHexAmount(result)
	if !ok {
		return decimal.Zero, Transient(c.name, op, fmt.Errorf("malformed quantity %q", result))
	}
	return v, nil
}
