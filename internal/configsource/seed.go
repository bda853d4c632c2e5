package configsource

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coinledger/holdings/internal/domain"
)

// SeedFile is the operator-facing YAML shape for bootstrapping wallet and
// token configuration.
type SeedFile struct {
	Wallets []SeedWallet `yaml:"wallets"`
	Tokens  []SeedToken  `yaml:"tokens"`
}

// SeedWallet declares one wallet. Active defaults to true when omitted.
type SeedWallet struct {
	Name    string `yaml:"name"`
	Network string `yaml:"network"`
	Address string `yaml:"address"`
	Active  *bool  `yaml:"active"`
}

// SeedToken declares one token. Decimals omitted means "unknown", which
// falls back to the per-network defaults at resolution time.
type SeedToken struct {
	Symbol   string `yaml:"symbol"`
	Network  string `yaml:"network"`
	Contract string `yaml:"contract"`
	Decimals *int32 `yaml:"decimals"`
	Active   *bool  `yaml:"active"`
}

// LoadSeedFile reads and validates a seed file.
func LoadSeedFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("reading seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(data []byte) (SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parsing seed YAML: %w", err)
	}
	for i, w := range seed.Wallets {
		if w.Name == "" || w.Network == "" || w.Address == "" {
			return SeedFile{}, fmt.Errorf("wallet %d: name, network and address are required", i)
		}
	}
	for i, t := range seed.Tokens {
		if t.Symbol == "" || t.Network == "" {
			return SeedFile{}, fmt.Errorf("token %d: symbol and network are required", i)
		}
		if t.Decimals != nil && *t.Decimals < 0 {
			return SeedFile{}, fmt.Errorf("token %d (%s): decimals must be non-negative", i, t.Symbol)
		}
	}
	return seed, nil
}

// ApplySeed upserts the seed into the wallet and token tables. Identity is
// (network, address) for wallets and (network, symbol, contract) for tokens.
func (s *PgSource) ApplySeed(ctx context.Context, seed SeedFile) error {
	for _, w := range seed.Wallets {
		active := w.Active == nil || *w.Active
		_, err := s.pool.Exec(ctx,
			`INSERT INTO wallets (name, network, address, active)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (network, address) DO UPDATE SET name = $1, active = $4`,
			w.Name, domain.Network(w.Network), w.Address, active)
		if err != nil {
			return fmt.Errorf("seeding wallet %s: %w", w.Name, err)
		}
	}
	for _, t := range seed.Tokens {
		active := t.Active == nil || *t.Active
		_, err := s.pool.Exec(ctx,
			`INSERT INTO tokens (symbol, network, contract, decimals, active)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (network, symbol, contract) DO UPDATE SET decimals = $4, active = $5`,
			t.Symbol, domain.Network(t.Network), t.Contract, t.Decimals, active)
		if err != nil {
			return fmt.Errorf("seeding token %s on %s: %w", t.Symbol, t.Network, err)
		}
	}
	return nil
}
