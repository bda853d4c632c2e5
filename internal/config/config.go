package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment
// variables. It is constructed once at startup and passed explicitly into
// every component; nothing reads the environment after Load returns.
type Config struct {
	DatabaseURL string
	DBMaxConns  int
	HTTPPort    string
	AdminAPIKey string

	// Provider retry policy. RPC endpoints back off from a shorter base
	// than the enrichment tier (explorers, exchange, price feed).
	MaxRetries      int
	RPCBaseDelay    time.Duration
	EnrichBaseDelay time.Duration
	ProviderTimeout time.Duration

	// Per-network provider endpoints. Defaults are the public tiers; keys
	// unlock the paid ones.
	EthRPCURL      string
	BscRPCURL      string
	PolygonRPCURL  string
	EtherscanURL   string
	EtherscanKey   string
	BscscanURL     string
	BscscanKey     string
	PolygonscanURL string
	PolygonscanKey string
	TronGridURL    string
	TronGridKey    string
	SolanaRPCURL   string
	EsploraURL     string

	// Exchange credentials (signed-request scheme).
	ExchangeURL        string
	ExchangeKey        string
	ExchangeSecret     string
	ExchangePassphrase string

	// Price feed.
	PriceAPIURL     string
	PriceAPIKey     string
	PriceBatchSize  int
	PriceBatchDelay time.Duration

	// Run behaviour.
	DryRun              bool
	DuplicateProtection bool
	WalletConcurrency   int
	RunTimeout          time.Duration
	ScheduleInterval    time.Duration

	// Export destinations. XLSX workbooks always land in ExportDir; the
	// Google Sheets mirror is active only when both Sheets vars are set.
	ExportDir             string
	SheetsSpreadsheetID   string
	SheetsCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DatabaseURL: envOrDefaultWarn("DATABASE_URL", ""),
		DBMaxConns:  envOrDefaultInt("DB_MAX_CONNS", 10),
		HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey: envOrDefault("ADMIN_API_KEY", ""),

		MaxRetries:      envOrDefaultInt("MAX_RETRIES", 3),
		RPCBaseDelay:    envOrDefaultDuration("RPC_BASE_DELAY", 500*time.Millisecond),
		EnrichBaseDelay: envOrDefaultDuration("ENRICH_BASE_DELAY", time.Second),
		ProviderTimeout: envOrDefaultDuration("PROVIDER_TIMEOUT", 10*time.Second),

		EthRPCURL:      envOrDefault("ETH_RPC_URL", "https://ethereum-rpc.publicnode.com"),
		BscRPCURL:      envOrDefault("BSC_RPC_URL", "https://bsc-rpc.publicnode.com"),
		PolygonRPCURL:  envOrDefault("POLYGON_RPC_URL", "https://polygon-bor-rpc.publicnode.com"),
		EtherscanURL:   envOrDefault("ETHERSCAN_URL", "https://api.etherscan.io/api"),
		EtherscanKey:   envOrDefault("ETHERSCAN_API_KEY", ""),
		BscscanURL:     envOrDefault("BSCSCAN_URL", "https://api.bscscan.com/api"),
		BscscanKey:     envOrDefault("BSCSCAN_API_KEY", ""),
		PolygonscanURL: envOrDefault("POLYGONSCAN_URL", "https://api.polygonscan.com/api"),
		PolygonscanKey: envOrDefault("POLYGONSCAN_API_KEY", ""),
		TronGridURL:    envOrDefault("TRONGRID_URL", "https://api.trongrid.io"),
		TronGridKey:    envOrDefault("TRONGRID_API_KEY", ""),
		SolanaRPCURL:   envOrDefault("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		EsploraURL:     envOrDefault("ESPLORA_URL", "https://blockstream.info/api"),

		ExchangeURL:        envOrDefault("EXCHANGE_API_URL", ""),
		ExchangeKey:        envOrDefault("EXCHANGE_API_KEY", ""),
		ExchangeSecret:     envOrDefault("EXCHANGE_API_SECRET", ""),
		ExchangePassphrase: envOrDefault("EXCHANGE_API_PASSPHRASE", ""),

		PriceAPIURL:     envOrDefault("PRICE_API_URL", "https://sandbox-api.coinmarketcap.com"),
		PriceAPIKey:     envOrDefault("PRICE_API_KEY", ""),
		PriceBatchSize:  envOrDefaultInt("PRICE_BATCH_SIZE", 100),
		PriceBatchDelay: envOrDefaultDuration("PRICE_BATCH_DELAY", 2*time.Second),

		DryRun:              envOrDefaultBool("DRY_RUN", false),
		DuplicateProtection: envOrDefaultBool("DUPLICATE_PROTECTION", true),
		WalletConcurrency:   envOrDefaultInt("WALLET_CONCURRENCY", 4),
		RunTimeout:          envOrDefaultDuration("RUN_TIMEOUT", 10*time.Minute),
		ScheduleInterval:    envOrDefaultDuration("SCHEDULE_INTERVAL", 24*time.Hour),

		ExportDir:             envOrDefault("EXPORT_DIR", "exports"),
		SheetsSpreadsheetID:   envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON: envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
