// Command shopbench drives a concurrent transactional workload against a
// PostgreSQL e-commerce schema: it creates the schema, seeds the base
// population, and submits a configurable number of weighted random operations
// to a fixed-size worker pool.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/shopbench/shopbench-go/internal/config"
	"github.com/shopbench/shopbench-go/workload"
	"github.com/shopbench/shopbench-go/workload/oteladapters"
	"github.com/shopbench/shopbench-go/workload/postgresdriver"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the run on SIGINT/SIGTERM; in-flight operations finish, the
	// rest of the backlog is dropped.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, canceling workload run...", sig)
		cancel()
	}()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := oteladapters.NewSlogLogger(handler)
	ctxLogger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	metrics := oteladapters.NewMetricsCollector(otel.Meter("shopbench"))

	driver, closeDB, err := newDriver(ctx, cfg,
		postgresdriver.WithLogger(logger),
		postgresdriver.WithContextualLogger(ctxLogger),
		postgresdriver.WithLockTimeout(cfg.LockTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to create workload driver: %v", err)
	}
	defer closeDB()

	// Schema and seed run synchronously before any workload operation.
	if schemaErr := driver.EnsureSchema(ctx); schemaErr != nil {
		log.Fatalf("Failed to create schema: %v", schemaErr)
	}

	seedRng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // workload parameter selection, not crypto
	if seedErr := driver.Seed(ctx, seedRng); seedErr != nil {
		log.Fatalf("Failed to seed base data: %v", seedErr)
	}

	mix := workload.UniformMix()
	if cfg.Weights != nil {
		mix, err = workload.NewMix(cfg.Weights)
		if err != nil {
			log.Fatalf("Invalid operation weights %v: %v", cfg.Weights, err)
		}
	}

	runner, err := workload.NewRunner(
		driver,
		workload.RunnerConfig{
			Workers:    cfg.Workers,
			Operations: cfg.Operations,
			Mix:        mix,
			Seed:       cfg.Seed,
		},
		workload.WithRunnerLogger(logger),
		workload.WithRunnerMetrics(metrics),
	)
	if err != nil {
		log.Fatalf("Failed to create runner: %v", err)
	}

	summary, runErr := runner.Run(ctx)

	report, jsonErr := summary.JSON()
	if jsonErr != nil {
		log.Printf("Failed to encode summary: %v", jsonErr)
	} else {
		os.Stdout.Write(append(report, '\n')) //nolint:errcheck // final report on stdout
	}

	if runErr != nil {
		log.Printf("Workload run ended early: %v", runErr)
		os.Exit(1)
	}
}

// newDriver builds the workload driver on the database adapter selected by
// DB_ADAPTER. The pgx pool is the default; sqldb and sqlx exist to compare
// driver stacks under the same workload.
func newDriver(
	ctx context.Context,
	cfg config.Config,
	options ...postgresdriver.Option,
) (*postgresdriver.Driver, func(), error) {

	switch cfg.Adapter {
	case config.AdapterPGX:
		pgxPool, err := pgxpool.NewWithConfig(ctx, cfg.PGXPoolConfig())
		if err != nil {
			return nil, nil, err
		}

		if pingErr := pgxPool.Ping(ctx); pingErr != nil {
			pgxPool.Close()
			return nil, nil, pingErr
		}

		driver, err := postgresdriver.NewDriverFromPGXPool(pgxPool, options...)
		if err != nil {
			pgxPool.Close()
			return nil, nil, err
		}

		return driver, pgxPool.Close, nil

	case config.AdapterSQLDB:
		db := cfg.SQLDBConfig()

		driver, err := postgresdriver.NewDriverFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return driver, func() { _ = db.Close() }, nil

	case config.AdapterSQLX:
		db := cfg.SQLXConfig()

		driver, err := postgresdriver.NewDriverFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return driver, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown database adapter %q", cfg.Adapter)
	}
}
