package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinledger/holdings/internal/domain"
)

// ErrNoRuns indicates no run has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

// PgRepository implements RunRepository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a PostgreSQL run repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, s domain.RunSummary) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO runs (id, trigger_type, started_at, finished_at, records_written, wallets_processed, errors, success)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.Trigger, s.StartedAt, s.FinishedAt, s.RecordsWritten, s.WalletsProcessed, s.Errors, s.Success)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", s.ID, err)
	}
	return nil
}

func (r *PgRepository) Latest(ctx context.Context) (*domain.RunSummary, error) {
	var s domain.RunSummary
	err := r.pool.QueryRow(ctx,
		`SELECT id, trigger_type, started_at, finished_at, records_written, wallets_processed, errors, success
		 FROM runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&s.ID, &s.Trigger, &s.StartedAt, &s.FinishedAt, &s.RecordsWritten, &s.WalletsProcessed, &s.Errors, &s.Success)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return &s, nil
}
