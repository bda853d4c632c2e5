package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinledger/holdings/internal/domain"
)

// PgRepository implements Repository with PostgreSQL, keeping the latest
// quote per symbol for observability.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a PostgreSQL quote repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) SaveQuotes(ctx context.Context, quotes []domain.PriceQuote) error {
	for _, q := range quotes {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO price_quotes (symbol, price_usd, market_cap, volume_24h, change_24h_pct, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (symbol) DO UPDATE
			 SET price_usd = $2, market_cap = $3, volume_24h = $4, change_24h_pct = $5, updated_at = $6`,
			q.Symbol, q.PriceUSD, q.MarketCap, q.Volume24h, q.Change24hPct, q.UpdatedAt)
		if err != nil {
			return fmt.Errorf("saving quote for %s: %w", q.Symbol, err)
		}
	}
	return nil
}

// GetAllQuotes returns the stored quotes ordered by symbol.
func (r *PgRepository) GetAllQuotes(ctx context.Context) ([]domain.PriceQuote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, price_usd, market_cap, volume_24h, change_24h_pct, updated_at
		 FROM price_quotes ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("getting quotes: %w", err)
	}
	defer rows.Close()

	var quotes []domain.PriceQuote
	for rows.Next() {
		var q domain.PriceQuote
		var updatedAt time.Time
		if err := rows.Scan(&q.Symbol, &q.PriceUSD, &q.MarketCap, &q.Volume24h, &q.Change24hPct, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		q.UpdatedAt = updatedAt
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
