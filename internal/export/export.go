// Package export renders a run's records into spreadsheet destinations:
// a local XLSX workbook and, when configured, a Google Sheets mirror.
package export

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/coinledger/holdings/internal/domain"
)

// RecordSource provides the records a run emitted.
type RecordSource interface {
	ListSince(ctx context.Context, since time.Time) ([]domain.FinancialRecord, error)
}

// RecordWriter writes one run's rows to a destination.
type RecordWriter interface {
	Write(ctx context.Context, summary domain.RunSummary, records []domain.FinancialRecord) error
}

// Service fetches a finished run's records and fans them out to its writers.
// Implements worker.AfterRunHook.
type Service struct {
	records RecordSource
	writers []RecordWriter
}

// NewService creates an export Service.
func NewService(records RecordSource, writers ...RecordWriter) *Service {
	return &Service{records: records, writers: writers}
}

// Export writes the run's records to every configured destination. Records
// within a run share the run's start time as their timestamp, which is what
// ListSince keys on.
func (s *Service) Export(ctx context.Context, summary domain.RunSummary) error {
	if len(s.writers) == 0 {
		return nil
	}

	records, err := s.records.ListSince(ctx, summary.StartedAt)
	if err != nil {
		return fmt.Errorf("fetching run records: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	for _, w := range s.writers {
		if err := w.Write(ctx, summary, records); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
	}
	return nil
}

// recordHeader is the column layout shared by all destinations.
var recordHeader = []any{
	"Recorded At", "Network", "Symbol", "Wallet Address",
	"Quantity", "Price USD", "Value USD", "Status",
}

func recordRow(r domain.FinancialRecord) []any {
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		string(r.Network),
		r.Symbol,
		r.Address,
		toFloat(r.Quantity),
		toFloat(r.PriceUSD),
		toFloat(r.ValueUSD),
		string(r.Status),
	}
}

// summaryRows renders the totals block: per-network USD value plus a grand
// total, computed on decimals and converted to float only at the edge.
func summaryRows(records []domain.FinancialRecord) [][]any {
	byNetwork := lo.GroupBy(records, func(r domain.FinancialRecord) domain.Network {
		return r.Network
	})

	networks := lo.Keys(byNetwork)
	slices.Sort(networks)

	rows := [][]any{{"Network", "Value USD"}}
	total := decimal.Zero
	for _, network := range networks {
		sum := lo.Reduce(byNetwork[network], func(acc decimal.Decimal, r domain.FinancialRecord, _ int) decimal.Decimal {
			return acc.Add(r.ValueUSD)
		}, decimal.Zero)
		total = total.Add(sum)
		rows = append(rows, []any{string(network), toFloat(sum)})
	}
	rows = append(rows, []any{"TOTAL", toFloat(total)})
	return rows
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
