// Package configsource provides the read-only wallet and token snapshots a
// run consumes, backed by PostgreSQL, plus the YAML seed path operators use
// to bootstrap them.
package configsource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinledger/holdings/internal/domain"
)

// Source provides per-run configuration snapshots. The engine treats both
// lists as read-only for the duration of one run; MarkWalletSynced is the
// single write-back, invoked once per successfully processed wallet.
type Source interface {
	ActiveWallets(ctx context.Context) ([]domain.Wallet, error)
	ActiveTokens(ctx context.Context) ([]domain.Token, error)
	MarkWalletSynced(ctx context.Context, walletID int64, at time.Time) error
}

// PgSource implements Source with PostgreSQL.
type PgSource struct {
	pool *pgxpool.Pool
}

// NewPgSource creates a PostgreSQL configuration source.
func NewPgSource(pool *pgxpool.Pool) *PgSource {
	return &PgSource{pool: pool}
}

func (s *PgSource) ActiveWallets(ctx context.Context) ([]domain.Wallet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, network, address, active, last_sync_at
		 FROM wallets WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing active wallets: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.ID, &w.Name, &w.Network, &w.Address, &w.Active, &w.LastSyncAt); err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (s *PgSource) ActiveTokens(ctx context.Context) ([]domain.Token, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, symbol, network, COALESCE(contract, ''), COALESCE(decimals, -1), active
		 FROM tokens WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing active tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Network, &t.Contract, &t.Decimals, &t.Active); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *PgSource) MarkWalletSynced(ctx context.Context, walletID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE wallets SET last_sync_at = $2 WHERE id = $1`, walletID, at)
	if err != nil {
		return fmt.Errorf("marking wallet %d synced: %w", walletID, err)
	}
	return nil
}
