// Package api exposes the run trigger surface over HTTP: one entry point
// that starts a run and returns its summary, and read-only queries for the
// latest run, recent records and stored price quotes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/run"
)

// RunService triggers runs and answers the latest-run query.
type RunService interface {
	Execute(ctx context.Context, trigger domain.TriggerType) domain.RunSummary
	Latest(ctx context.Context) (*domain.RunSummary, error)
}

// RecordLister lists recently emitted records.
type RecordLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.FinancialRecord, error)
}

// QuoteLister lists the stored price quotes from the latest runs.
type QuoteLister interface {
	GetAllQuotes(ctx context.Context) ([]domain.PriceQuote, error)
}

// Handler provides the HTTP endpoints.
type Handler struct {
	runs    RunService
	records RecordLister
	quotes  QuoteLister
}

// NewHandler creates an API handler.
func NewHandler(runs RunService, records RecordLister, quotes QuoteLister) *Handler {
	return &Handler{runs: runs, records: records, quotes: quotes}
}

// TriggerRun handles POST /api/v1/runs. The summary always comes back with
// HTTP 200: a degraded run is a result, not a server error.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	summary := h.runs.Execute(r.Context(), domain.TriggerManual)
	writeJSON(w, http.StatusOK, summary)
}

// GetLatestRun handles GET /api/v1/runs/latest.
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	s, err := h.runs.Latest(r.Context())
	if err != nil {
		if errors.Is(err, run.ErrNoRuns) {
			writeError(w, http.StatusNotFound, "no runs recorded")
			return
		}
		slog.Error("failed to get latest run", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListRecords handles GET /api/v1/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 1000
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	records, err := h.records.ListRecent(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list records", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ListQuotes handles GET /api/v1/quotes.
func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.quotes.GetAllQuotes(r.Context())
	if err != nil {
		slog.Error("failed to list quotes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
