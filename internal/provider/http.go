package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout applies to providers that do not configure their own.
const DefaultTimeout = 10 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doRequest executes one HTTP request, classifies failures by status code
// and emits the per-call structured log line. One invocation is exactly one
// network request; retries live in the retry driver, not here.
func doRequest(client *http.Client, name, op string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("provider call failed",
			"provider", name, "op", op, "method", req.Method, "outcome", "error", "error", err)
		return nil, Transient(name, op, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		slog.Warn("provider call failed",
			"provider", name, "op", op, "method", req.Method, "outcome", "read_error", "error", err)
		return nil, Transient(name, op, fmt.Errorf("reading response: %w", err))
	}

	slog.Debug("provider call",
		"provider", name, "op", op, "method", req.Method, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, RateLimited(name, op, fmt.Errorf("HTTP 429"))
	case resp.StatusCode >= 500:
		return nil, Transient(name, op, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body)))
	default:
		return nil, Permanent(name, op, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body)))
	}
}

// GetJSON issues one classified GET request and decodes the JSON reply. It
// is shared with the price fetcher, which carries the same failure taxonomy
// as the balance providers.
func GetJSON(ctx context.Context, client *http.Client, name, op, url string, headers map[string]string, dest any) error {
	return getJSON(ctx, client, name, op, url, headers, dest)
}

// NewHTTPClient returns a client with the provider-standard timeout applied.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return newHTTPClient(timeout)
}

func getJSON(ctx context.Context, client *http.Client, name, op, url string, headers map[string]string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Permanent(name, op, fmt.Errorf("creating request: %w", err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	body, err := doRequest(client, name, op, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return Transient(name, op, fmt.Errorf("parsing JSON: %w", err))
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, name, op, url string, headers map[string]string, payload, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return Permanent(name, op, fmt.Errorf("encoding request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return Permanent(name, op, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	body, err := doRequest(client, name, op, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return Transient(name, op, fmt.Errorf("parsing JSON: %w", err))
	}
	return nil
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
