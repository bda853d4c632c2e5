package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/coinledger/holdings/internal/api"
	"github.com/coinledger/holdings/internal/config"
	"github.com/coinledger/holdings/internal/configsource"
	"github.com/coinledger/holdings/internal/database"
	"github.com/coinledger/holdings/internal/domain"
	"github.com/coinledger/holdings/internal/export"
	"github.com/coinledger/holdings/internal/pricing"
	"github.com/coinledger/holdings/internal/provider"
	"github.com/coinledger/holdings/internal/record"
	"github.com/coinledger/holdings/internal/resolver"
	"github.com/coinledger/holdings/internal/run"
	"github.com/coinledger/holdings/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "holdings",
		Usage: "aggregate wallet balances across networks and value them in USD",
		Commands: []*cli.Command{
			serveCommand(),
			runCommand(),
			seedCommand(),
			exportCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// application is the fully wired service stack shared by all commands.
type application struct {
	cfg          config.Config
	pool         *pgxpool.Pool
	source       *configsource.PgSource
	records      *record.PgStore
	quotes       *pricing.PgRepository
	orchestrator *run.Orchestrator
}

func (a *application) close() {
	a.pool.Close()
}

// setup connects to the database, applies migrations and wires the run
// pipeline.
func setup(ctx context.Context, cfg config.Config, dryRun bool) (*application, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.Migrate(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	source := configsource.NewPgSource(pool)
	records := record.NewPgStore(pool, cfg.DuplicateProtection)
	runs := run.NewPgRepository(pool)

	registry := resolver.NewRegistry(cfg)
	balances := resolver.NewService(registry)

	priceClient := pricing.NewClient(cfg.PriceAPIURL, cfg.PriceAPIKey, cfg.ProviderTimeout)
	priceRepo := pricing.NewPgRepository(pool)
	prices := pricing.NewService(priceClient, priceRepo,
		provider.RetryPolicy{MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.EnrichBaseDelay},
		cfg.PriceBatchSize, cfg.PriceBatchDelay)

	orchestrator := run.NewOrchestrator(source, balances, prices, records, runs, run.Options{
		DryRun:      dryRun,
		Concurrency: cfg.WalletConcurrency,
		Timeout:     cfg.RunTimeout,
	})

	return &application{
		cfg:          cfg,
		pool:         pool,
		source:       source,
		records:      records,
		quotes:       priceRepo,
		orchestrator: orchestrator,
	}, nil
}

// newExporter builds the export fan-out: the XLSX workbook always, the
// Google Sheets mirror only when credentials are configured.
func newExporter(ctx context.Context, cfg config.Config, records *record.PgStore) (*export.Service, error) {
	writers := []export.RecordWriter{export.NewXLSXWriter(cfg.ExportDir)}

	if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
		sheets, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("creating sheets writer: %w", err)
		}
		writers = append(writers, sheets)
	}

	return export.NewService(records, writers...), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the scheduled aggregation worker",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			app, err := setup(ctx, cfg, cfg.DryRun)
			if err != nil {
				return err
			}
			defer app.close()

			exporter, err := newExporter(ctx, cfg, app.records)
			if err != nil {
				return err
			}

			scheduler := worker.NewScheduleWorker(app.orchestrator, cfg.ScheduleInterval, exporter)
			go scheduler.Run(ctx)

			if cfg.AdminAPIKey == "" {
				slog.Warn("ADMIN_API_KEY not set, run trigger endpoint is unprotected")
			}

			srv := api.NewServer(cfg.HTTPPort, app.orchestrator, app.records, app.quotes, cfg.AdminAPIKey)
			go func() {
				slog.Info("HTTP server listening", "port", cfg.HTTPPort)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server error", "error", err)
					stop()
				}
			}()

			<-ctx.Done()
			slog.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
			}
			slog.Info("shutdown complete")
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "execute one aggregation run and exit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "resolve and value balances without writing records",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			app, err := setup(ctx, cfg, cfg.DryRun || c.Bool("dry-run"))
			if err != nil {
				return err
			}
			defer app.close()

			summary := app.orchestrator.Execute(ctx, domain.TriggerManual)
			for _, e := range summary.Errors {
				slog.Warn("run error", "error", e)
			}
			if !summary.Success {
				return fmt.Errorf("run %s failed: no wallets processed", summary.ID)
			}
			slog.Info("run succeeded",
				"run", summary.ID.String(),
				"wallets", summary.WalletsProcessed,
				"records", summary.RecordsWritten)
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "upsert wallet and token configuration from a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "path to the seed YAML",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			seed, err := configsource.LoadSeedFile(c.String("file"))
			if err != nil {
				return err
			}

			cfg := config.Load()
			app, err := setup(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.source.ApplySeed(ctx, seed); err != nil {
				return err
			}
			slog.Info("seed applied", "wallets", len(seed.Wallets), "tokens", len(seed.Tokens))
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export the latest run's records to the configured destinations",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			app, err := setup(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer app.close()

			latest, err := app.orchestrator.Latest(ctx)
			if err != nil {
				return fmt.Errorf("loading latest run: %w", err)
			}

			exporter, err := newExporter(ctx, cfg, app.records)
			if err != nil {
				return err
			}
			if err := exporter.Export(ctx, *latest); err != nil {
				return err
			}
			slog.Info("export complete", "run", latest.ID.String())
			return nil
		},
	}
}
