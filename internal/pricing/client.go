// Package pricing fetches USD quotes for the run's distinct symbol set in
// bounded batches and guarantees a total symbol→quote map: every requested
// symbol gets an answer, degraded to a zero quote when unresolved.
package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/provider"
)

const quotesPath = "/v2/cryptocurrency/quotes/latest"

// Client fetches batched quotes from a CoinMarketCap-compatible API.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a price API client. The documented fallback when no key
// is configured is the provider's sandbox tier.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{name: "price-api", baseURL: baseURL, apiKey: apiKey, http: provider.NewHTTPClient(timeout)}
}

type quoteUSD struct {
	Price        decimal.Decimal `json:"price"`
	MarketCap    decimal.Decimal `json:"market_cap"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	Change24hPct decimal.Decimal `json:"percent_change_24h"`
	LastUpdated  time.Time       `json:"last_updated"`
}

type quotesResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string][]struct {
		Symbol string `json:"symbol"`
		Quote  struct {
			USD quoteUSD `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

// Quotes fetches USD quotes for one batch of symbols. Symbols unknown to the
// provider are simply absent from the returned map; the caller's totality
// pass zero-fills them.
func (c *Client) Quotes(ctx context.Context, symbols []string) (map[string]domain.PriceQuote, error) {
	const op = "quotes/latest"
	params := url.Values{}
	params.Set("symbol", strings.Join(symbols, ","))
	params.Set("convert", "USD")
	params.Set("skip_invalid", "true")

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"X-CMC_PRO_API_KEY": c.apiKey}
	}

	var resp quotesResponse
	reqURL := c.baseURL + quotesPath + "?" + params.Encode()
	if err := provider.GetJSON(ctx, c.http, c.name, op, reqURL, headers, &resp); err != nil {
		return nil, err
	}
	if resp.Status.ErrorCode != 0 {
		return nil, classifyQuoteError(c.name, op, resp.Status.ErrorCode, resp.Status.ErrorMessage)
	}

	quotes := make(map[string]domain.PriceQuote, len(resp.Data))
	for symbol, listings := range resp.Data {
		if len(listings) == 0 {
			continue
		}
		// Several assets can share a symbol; the provider orders listings
		// by rank, so the first one is the quote everyone means.
		usd := listings[0].Quote.USD
		quotes[strings.ToUpper(symbol)] = domain.PriceQuote{
			Symbol:       strings.ToUpper(symbol),
			PriceUSD:     usd.Price,
			MarketCap:    usd.MarketCap,
			Volume24h:    usd.Volume24h,
			Change24hPct: usd.Change24hPct,
			UpdatedAt:    usd.LastUpdated,
		}
	}
	return quotes, nil
}

// classifyQuoteError maps in-body API error codes: 1008 is the documented
// rate-limit code, 1002 unauthorized.
func classifyQuoteError(name, op string, code int, msg string) *provider.Error {
	err := fmt.Errorf("api error %d: %s", code, msg)
	switch code {
	case 1008:
		return provider.RateLimited(name, op, err)
	case 1001, 1002, 1006:
		return provider.Permanent(name, op, err)
	default:
		return provider.Transient(name, op, err)
	}
}
