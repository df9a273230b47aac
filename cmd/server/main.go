// Command server runs the dashboard feed and a scheduled ingestion loop
// in one process: quote/series JSON endpoints, a websocket quote stream,
// health and status endpoints, Prometheus metrics, and periodic price
// ingestion cycles in the background.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/loic-mmt/BloomDash/internal/dashboard"
	"github.com/loic-mmt/BloomDash/internal/ingest"
	"github.com/loic-mmt/BloomDash/internal/observability"
	"github.com/loic-mmt/BloomDash/internal/provider"
	"github.com/loic-mmt/BloomDash/internal/provider/yahoo"
	"github.com/loic-mmt/BloomDash/internal/storage/memory"
	"github.com/loic-mmt/BloomDash/internal/storage/migrations"
	pgstore "github.com/loic-mmt/BloomDash/internal/storage/postgres"
)

// cycleSummary is the slice of a CycleResult exposed on /api/status.
type cycleSummary struct {
	RunID       string    `json:"run_id"`
	Domain      string    `json:"domain"`
	Started     time.Time `json:"started"`
	DurationMS  int64     `json:"duration_ms"`
	Keys        int       `json:"keys"`
	RowsWritten int       `json:"rows_written"`
	Failures    int       `json:"failures"`
}

// serverState tracks the last cycles for /api/status.
type serverState struct {
	mu      sync.Mutex
	started time.Time
	cycles  []cycleSummary
}

func (s *serverState) record(result *ingest.CycleResult) {
	if result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles = append(s.cycles, cycleSummary{
		RunID:       result.RunID.String(),
		Domain:      string(result.Domain),
		Started:     result.Started,
		DurationMS:  result.Duration.Milliseconds(),
		Keys:        len(result.Keys),
		RowsWritten: result.RowsWritten,
		Failures:    result.Failures,
	})
	if len(s.cycles) > 20 {
		s.cycles = s.cycles[len(s.cycles)-20:]
	}
}

func (s *serverState) status() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycles := append([]cycleSummary(nil), s.cycles...)
	return map[string]any{
		"state":          "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"recent_cycles":  cycles,
	}
}

func main() {
	loadEnvFile()

	addr := flag.String("addr", envOr("DASHBOARD_ADDR", ":8080"), "Dashboard HTTP address")
	tickers := flag.String("tickers", envOr("INGEST_TICKERS", "SPY,QQQ,EFA"), "Comma-separated tickers for the background price cycle")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	ingestInterval := flag.Duration("ingest-interval", 1*time.Hour, "Background price cycle interval (0 to disable)")
	pushInterval := flag.Duration("push-interval", 5*time.Second, "Websocket quote push interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	state := &serverState{started: time.Now().UTC()}

	if *ingestInterval > 0 {
		runner, cleanup, err := buildRunner(ctx, logger, *postgresDSN, *useMemory)
		if err != nil {
			logger.Fatalf("Ingestion setup failed: %v", err)
		}
		defer cleanup()
		go ingestLoop(ctx, logger, state, runner, splitList(*tickers), *ingestInterval)
	}

	server := dashboard.NewServer(dashboard.ServerOptions{
		Addr:         *addr,
		Logger:       logger,
		Status:       state.status,
		PushInterval: *pushInterval,
	})

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// buildRunner wires the price cycle against PostgreSQL, or memory stores
// with -use-memory.
func buildRunner(ctx context.Context, logger *log.Logger, postgresDSN string, useMemory bool) (*ingest.Runner, func(), error) {
	opts := ingest.Options{
		PriceSource: yahoo.New(yahoo.Options{Client: provider.NewClient()}),
		Logger:      logger,
		Metrics:     observability.NewMetrics(""),
	}
	cleanup := func() {}

	if useMemory || postgresDSN == "" {
		if postgresDSN == "" && !useMemory {
			logger.Println("No -postgres-dsn given, using in-memory storage")
		}
		opts.PriceCheckpoints = memory.NewPriceCheckpointStore()
		opts.PriceDataset = memory.NewPriceDataset()
		return ingest.NewRunner(opts), cleanup, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	opts.PriceCheckpoints = pgstore.NewPriceCheckpointStore(pool)
	opts.PriceDataset = pgstore.NewPriceDatasetAppender(pool)
	return ingest.NewRunner(opts), func() { pool.Close() }, nil
}

// ingestLoop runs a price cycle immediately and then on the interval.
func ingestLoop(ctx context.Context, logger *log.Logger, state *serverState, runner *ingest.Runner, tickers []string, interval time.Duration) {
	run := func() {
		result, err := runner.RunPrices(ctx, tickers)
		state.record(result)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("Price cycle failed: %v", err)
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
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
