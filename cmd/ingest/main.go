// Command ingest runs incremental ingestion cycles: prices from the
// Yahoo adapter, macro and feature domains from demo sources until their
// providers land. One-shot by default, scheduled with -interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/ingest"
	"github.com/loic-mmt/BloomDash/internal/observability"
	"github.com/loic-mmt/BloomDash/internal/provider"
	"github.com/loic-mmt/BloomDash/internal/provider/yahoo"
	"github.com/loic-mmt/BloomDash/internal/storage"
	chstore "github.com/loic-mmt/BloomDash/internal/storage/clickhouse"
	"github.com/loic-mmt/BloomDash/internal/storage/memory"
	"github.com/loic-mmt/BloomDash/internal/storage/migrations"
	pgstore "github.com/loic-mmt/BloomDash/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	domains := flag.String("domains", "prices", "Comma-separated domains to ingest: prices, macro, features")
	tickers := flag.String("tickers", envOr("INGEST_TICKERS", "SPY,QQQ,EFA"), "Comma-separated tickers for price and feature cycles")
	zones := flag.String("zones", envOr("INGEST_ZONES", "US,EU"), "Comma-separated macro zones")
	feature := flag.String("feature", "news_sentiment", "Feature family for feature cycles")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (datasets; empty to use PostgreSQL)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	demo := flag.Bool("demo", false, "Use synthetic sources instead of live providers")
	lookbackDays := flag.Int("lookback-days", 30, "Fetch window when no checkpoint exists")
	macroStart := flag.String("macro-start", "1990-01-01", "First macro fetch start date")
	concurrency := flag.Int("concurrency", 1, "Keys ingested in parallel per cycle")
	interval := flag.Duration("interval", 0, "Cycle interval (0 runs once and exits)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}

	start, err := domain.ParseDate(*macroStart)
	if err != nil {
		logger.Fatalf("Invalid -macro-start: %v", err)
	}

	domainList := splitList(*domains)
	if len(domainList) == 0 {
		logger.Fatal("No domains specified")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleSignals(ctx, cancel, logger)

	stores, cleanup, err := buildStores(ctx, logger, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Storage setup failed: %v", err)
	}
	defer cleanup()

	runner := ingest.NewRunner(ingest.Options{
		PriceSource:        priceSource(*demo, splitList(*tickers)),
		MacroSource:        macroSource(*demo, splitList(*zones), start),
		FeatureSource:      featureSource(*demo, *feature, splitList(*tickers)),
		PriceCheckpoints:   stores.priceCheckpoints,
		MacroCheckpoints:   stores.macroCheckpoints,
		FeatureCheckpoints: stores.featureCheckpoints,
		PriceDataset:       stores.priceDataset,
		MacroDataset:       stores.macroDataset,
		FeatureDataset:     stores.featureDataset,
		LookbackDays:       *lookbackDays,
		MacroStart:         start,
		Concurrency:        *concurrency,
		Logger:             logger,
		Metrics:            observability.NewMetrics(""),
	})

	runAll := func() error {
		for _, d := range domainList {
			var result *ingest.CycleResult
			var err error
			switch d {
			case "prices":
				result, err = runner.RunPrices(ctx, splitList(*tickers))
			case "macro":
				result, err = runner.RunMacro(ctx, splitList(*zones))
			case "features":
				result, err = runner.RunFeatures(ctx, *feature, splitList(*tickers))
			default:
				return fmt.Errorf("unknown domain %q", d)
			}
			printSummary(logger, result)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if *interval == 0 {
		if err := runAll(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("Cycle failed: %v", err)
		}
		logger.Println("Done")
		return
	}

	logger.Printf("Running every %v", *interval)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	if err := runAll(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("Cycle failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			logger.Println("Shutdown complete")
			return
		case <-ticker.C:
			if err := runAll(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("Cycle failed: %v", err)
			}
		}
	}
}

// stores groups the checkpoint stores and dataset appenders in use.
type stores struct {
	priceCheckpoints   storage.PriceCheckpointStore
	macroCheckpoints   storage.MacroCheckpointStore
	featureCheckpoints storage.FeatureCheckpointStore
	priceDataset       storage.PriceDatasetAppender
	macroDataset       storage.MacroDatasetAppender
	featureDataset     storage.FeatureDatasetAppender
}

// buildStores selects the storage backends: in-memory, or PostgreSQL for
// checkpoints with datasets on ClickHouse when a DSN is given and
// PostgreSQL otherwise. Migrations run before first use.
func buildStores(ctx context.Context, logger *log.Logger, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			priceCheckpoints:   memory.NewPriceCheckpointStore(),
			macroCheckpoints:   memory.NewMacroCheckpointStore(),
			featureCheckpoints: memory.NewFeatureCheckpointStore(),
			priceDataset:       memory.NewPriceDataset(),
			macroDataset:       memory.NewMacroDataset(),
			featureDataset:     memory.NewFeatureDataset(),
		}, func() {}, nil
	}

	if postgresDSN == "" {
		return nil, nil, fmt.Errorf("-postgres-dsn is required (or -use-memory)")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Println("PostgreSQL ready")

	s := &stores{
		priceCheckpoints:   pgstore.NewPriceCheckpointStore(pool),
		macroCheckpoints:   pgstore.NewMacroCheckpointStore(pool),
		featureCheckpoints: pgstore.NewFeatureCheckpointStore(pool),
		priceDataset:       pgstore.NewPriceDatasetAppender(pool),
		macroDataset:       pgstore.NewMacroDatasetAppender(pool),
		featureDataset:     pgstore.NewFeatureDatasetAppender(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		logger.Println("ClickHouse ready")
		s.priceDataset = chstore.NewPriceDatasetAppender(conn)
		s.macroDataset = chstore.NewMacroDatasetAppender(conn)
		s.featureDataset = chstore.NewFeatureDatasetAppender(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return s, cleanup, nil
}

func priceSource(demo bool, tickers []string) ingest.PriceSource {
	if demo {
		return demoPriceSource(tickers)
	}
	return yahoo.New(yahoo.Options{Client: provider.NewClient()})
}

func macroSource(demo bool, zones []string, start domain.Date) ingest.MacroSource {
	if demo {
		return demoMacroSource(zones, start)
	}
	// No live macro provider yet; see internal/provider/fred.
	return unavailableMacroSource{}
}

func featureSource(demo bool, feature string, tickers []string) ingest.FeatureSource {
	if demo {
		return demoFeatureSource(feature, tickers)
	}
	// No live feature provider yet; see internal/provider/gdelt.
	return unavailableFeatureSource{}
}

type unavailableMacroSource struct{}

func (unavailableMacroSource) History(context.Context, string, domain.Date, domain.Date) (*provider.Table, error) {
	return nil, fmt.Errorf("no macro provider configured (use -demo): %w", provider.ErrUnavailable)
}

type unavailableFeatureSource struct{}

func (unavailableFeatureSource) History(context.Context, string, string, domain.Date, domain.Date) (*provider.Table, error) {
	return nil, fmt.Errorf("no feature provider configured (use -demo): %w", provider.ErrUnavailable)
}

// printSummary logs one line per key plus cycle totals.
func printSummary(logger *log.Logger, result *ingest.CycleResult) {
	if result == nil {
		return
	}
	for _, kr := range result.Keys {
		switch kr.Status {
		case ingest.StatusOK:
			logger.Printf("  %-12s %s -> %s (%d rows)", kr.Key, prevLabel(kr), kr.New, kr.Rows)
		case ingest.StatusEmpty:
			logger.Printf("  %-12s up to date (checkpoint %s)", kr.Key, prevLabel(kr))
		case ingest.StatusFailed:
			logger.Printf("  %-12s FAILED: %v", kr.Key, kr.Err)
		}
	}
	logger.Printf("%s cycle %s: %d rows, %d failures in %v",
		result.Domain, result.RunID, result.RowsWritten, result.Failures, result.Duration)
}

func prevLabel(kr ingest.KeyResult) string {
	if !kr.HadPrev {
		return "(none)"
	}
	return kr.Prev.String()
}

func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

// handleSignals cancels ctx on the first signal and forces exit on the
// second or after a grace period.
func handleSignals(ctx context.Context, cancel context.CancelFunc, logger *log.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads .env into the environment without overriding
// existing variables.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
