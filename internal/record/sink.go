// Package record persists emitted financial records. The store is
// append-only: no update or delete path exists.
package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinledger/holdings/internal/domain"
)

// ErrDuplicate indicates the (timestamp, address, symbol) triple already
// exists and duplicate protection suppressed the write.
var ErrDuplicate = errors.New("record already exists")

// Sink accepts ownership of immutable financial records.
type Sink interface {
	Write(ctx context.Context, rec domain.FinancialRecord) error
}

// PgStore implements Sink with PostgreSQL. With dedupe enabled, records
// whose (recorded_at, wallet_address, symbol) triple already exists are
// suppressed and reported as ErrDuplicate.
type PgStore struct {
	pool   *pgxpool.Pool
	dedupe bool
}

// NewPgStore creates a PostgreSQL record store.
func NewPgStore(pool *pgxpool.Pool, dedupe bool) *PgStore {
	return &PgStore{pool: pool, dedupe: dedupe}
}

func (s *PgStore) Write(ctx context.Context, rec domain.FinancialRecord) error {
	query := `INSERT INTO financial_records
		(recorded_at, record_type, network, symbol, wallet_address, quantity, price_usd, value_usd, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if s.dedupe {
		query += ` ON CONFLICT (recorded_at, wallet_address, symbol) DO NOTHING`
	}

	tag, err := s.pool.Exec(ctx, query,
		rec.Timestamp, rec.Type, rec.Network, rec.Symbol, rec.Address,
		rec.Quantity, rec.PriceUSD, rec.ValueUSD, rec.Status)
	if err != nil {
		return fmt.Errorf("writing record %s/%s: %w", rec.Address, rec.Symbol, err)
	}
	if s.dedupe && tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// ListSince returns all records recorded at or after the given time, newest
// first. A run's records share one timestamp, so the run's start time
// retrieves exactly that run's output.
func (s *PgStore) ListSince(ctx context.Context, since time.Time) ([]domain.FinancialRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT recorded_at, record_type, network, symbol, wallet_address, quantity, price_usd, value_usd, status
		 FROM financial_records WHERE recorded_at >= $1 ORDER BY recorded_at DESC, id DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("listing records since %s: %w", since, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRecent returns the newest records, newest first.
func (s *PgStore) ListRecent(ctx context.Context, limit int) ([]domain.FinancialRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT recorded_at, record_type, network, symbol, wallet_address, quantity, price_usd, value_usd, status
		 FROM financial_records ORDER BY recorded_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]domain.FinancialRecord, error) {
	var records []domain.FinancialRecord
	for rows.Next() {
		var r domain.FinancialRecord
		if err := rows.Scan(&r.Timestamp, &r.Type, &r.Network, &r.Symbol, &r.Address,
			&r.Quantity, &r.PriceUSD, &r.ValueUSD, &r.Status); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
