package resolver

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coinledger/holdings/internal/config"
	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/provider"
)

// dec shortens the closure signatures in the fallback tables below.
type dec = decimal.Decimal

// networkProviders is the declarative fallback table for one network: which
// sources answer native queries, which answer token queries, and whether the
// network supports account-wide discovery. All per-network policy lives in
// these tables; the walking algorithm is provider.Chain, shared by everyone.
type networkProviders struct {
	native   func(w domain.Wallet) []provider.Source
	token    func(w domain.Wallet, t domain.Token) []provider.Source
	discover func(w domain.Wallet) provider.DiscoverFunc
}

// Registry maps networks to their provider fallback tables, built once from
// configuration at startup.
type Registry struct {
	networks map[domain.Network]networkProviders
}

// NewRegistry wires all configured provider clients into per-network
// fallback tables. EVM networks try the public RPC first and fall back to
// the explorer tier; tron and solana read one provider that also supports
// discovery; bitcoin is native-only; the exchange namespace is
// discovery-only and present only when credentials are configured.
func NewRegistry(cfg config.Config) *Registry {
	rpcPolicy := provider.RetryPolicy{MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.RPCBaseDelay}
	enrichPolicy := provider.RetryPolicy{MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.EnrichBaseDelay}

	r := &Registry{networks: make(map[domain.Network]networkProviders)}

	evm := []struct {
		network     domain.Network
		rpcURL      string
		explorerURL string
		explorerKey string
	}{
		{domain.NetworkEthereum, cfg.EthRPCURL, cfg.EtherscanURL, cfg.EtherscanKey},
		{domain.NetworkBSC, cfg.BscRPCURL, cfg.BscscanURL, cfg.BscscanKey},
		{domain.NetworkPolygon, cfg.PolygonRPCURL, cfg.PolygonscanURL, cfg.PolygonscanKey},
	}
	for _, n := range evm {
		rpc := provider.NewRPCClient(string(n.network)+"-rpc", n.rpcURL, cfg.ProviderTimeout)
		explorer := provider.NewExplorerClient(string(n.network)+"-explorer", n.explorerURL, n.explorerKey, cfg.ProviderTimeout)
		r.networks[n.network] = networkProviders{
			native: func(w domain.Wallet) []provider.Source {
				return []provider.Source{
					{Name: rpc.Name(), Policy: rpcPolicy, Fetch: func(ctx context.Context) (dec, error) {
						return rpc.NativeBalance(ctx, w.Address)
					}},
					{Name: explorer.Name(), Policy: enrichPolicy, Fetch: func(ctx context.Context) (dec, error) {
						return explorer.NativeBalance(ctx, w.Address)
					}},
				}
			},
			token: func(w domain.Wallet, t domain.Token) []provider.Source {
				return []provider.Source{
					{Name: rpc.Name(), Policy: rpcPolicy, Fetch: func(ctx context.Context) (dec, error) {
						return rpc.TokenBalance(ctx, w.Address, t.Contract)
					}},
					{Name: explorer.Name(), Policy: enrichPolicy, Fetch: func(ctx context.Context) (dec, error) {
						return explorer.TokenBalance(ctx, w.Address, t.Contract)
					}},
				}
			},
		}
	}

	tron := provider.NewTronClient("trongrid", cfg.TronGridURL, cfg.TronGridKey, cfg.ProviderTimeout)
	r.networks[domain.NetworkTron] = networkProviders{
		native: func(w domain.Wallet) []provider.Source {
			return []provider.Source{{Name: "trongrid", Policy: enrichPolicy, Fetch: func(ctx context.Context) (dec, error) {
				return tron.NativeBalance(ctx, w.Address)
			}}}
		},
		token: func(w domain.Wallet, t domain.Token) []provider.Source {
			return []provider.Source{{Name: "trongrid", Policy: enrichPolicy, Fetch: func(ctx context.Context) (dec, error) {
				return tron.TokenBalance(ctx, w.Address, t.Contract)
			}}}
		},
		discover: func(w domain.Wallet) provider.DiscoverFunc {
			return func(ctx context.Context) ([]provider.Holding, error) {
				return provider.Retry(ctx, enrichPolicy, "tron discovery", func(ctx context.Context) ([]provider.Holding, error) {
					return tron.Discover(ctx, w.Address)
				})
			}
		},
	}

	sol := provider.NewSolanaClient("solana-rpc", cfg.SolanaRPCURL, cfg.ProviderTimeout)
	r.networks[domain.NetworkSolana] = networkProviders{
		native: func(w domain.Wallet) []provider.Source {
			return []provider.Source{{Name: "solana-rpc", Policy: rpcPolicy, Fetch: func(ctx context.Context) (dec, error) {
				return sol.NativeBalance(ctx, w.Address)
			}}}
		},
		token: func(w domain.Wallet, t domain.Token) []provider.Source {
			return []provider.Source{{Name: "solana-rpc", Policy: rpcPolicy, Fetch: func(ctx context.Context) (dec, error) {
				return sol.TokenBalance(ctx, w.Address, t.Contract)
			}}}
		},
		discover: func(w domain.Wallet) provider.DiscoverFunc {
			return func(ctx context.Context) ([]provider.Holding, error) {
				return provider.Retry(ctx, rpcPolicy, "solana discovery", func(ctx context.Context) ([]provider.Holding, error) {
					return sol.Discover(ctx, w.Address)
				})
			}
		},
	}

	btc := provider.NewBitcoinClient("esplora", cfg.EsploraURL, cfg.ProviderTimeout)
	r.networks[domain.NetworkBitcoin] = networkProviders{
		native: func(w domain.Wallet) []provider.Source {
			return []provider.Source{{Name: "esplora", Policy: enrichPolicy, Fetch: func(ctx context.Context) (dec, error) {
				return btc.NativeBalance(ctx, w.Address)
			}}}
		},
	}

	if cfg.ExchangeURL != "" && cfg.ExchangeKey != "" {
		signer := provider.NewSigner(cfg.ExchangeKey, cfg.ExchangeSecret, cfg.ExchangePassphrase)
		exch := provider.NewExchangeClient("exchange", cfg.ExchangeURL, signer, cfg.ProviderTimeout)
		r.networks[domain.NetworkExchange] = networkProviders{
			discover: func(domain.Wallet) provider.DiscoverFunc {
				return func(ctx context.Context) ([]provider.Holding, error) {
					return provider.Retry(ctx, enrichPolicy, "exchange accounts", exch.Balances)
				}
			},
		}
	}

	return r
}

// Supports reports whether the registry has a fallback table for the network.
func (r *Registry) Supports(n domain.Network) bool {
	_, ok := r.networks[n]
	return ok
}

// NativeChain returns the native-asset fallback chain for the wallet, or
// false when the network has no single native asset (the exchange).
func (r *Registry) NativeChain(w domain.Wallet) (provider.Chain, bool) {
	np, ok := r.networks[w.Network]
	if !ok || np.native == nil {
		return provider.Chain{}, false
	}
	return provider.Chain{
		Op:      "native balance " + string(w.Network),
		Sources: np.native(w),
	}, true
}

// TokenChain returns the token-balance fallback chain for one configured
// token. The chain may be empty on networks without token providers; an
// empty chain resolves to an unconfirmed zero.
func (r *Registry) TokenChain(w domain.Wallet, t domain.Token) provider.Chain {
	np, ok := r.networks[w.Network]
	if !ok || np.token == nil {
		return provider.Chain{Op: "token balance " + t.Symbol}
	}
	return provider.Chain{
		Op:      "token balance " + t.Symbol + " on " + string(w.Network),
		Sources: np.token(w, t),
	}
}

// Discoverer returns the account-wide enumeration call for the wallet, or
// nil when the network does not support discovery.
func (r *Registry) Discoverer(w domain.Wallet) provider.DiscoverFunc {
	np, ok := r.networks[w.Network]
	if !ok || np.discover == nil {
		return nil
	}
	return np.discover(w)
}
