package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/normalize"
	"github.com/loic-mmt/BloomDash/internal/observability"
	"github.com/loic-mmt/BloomDash/internal/schema"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

// Status classifies the outcome of one key within a cycle.
type Status string

const (
	// StatusOK means new rows were appended and the checkpoint advanced.
	StatusOK Status = "ok"
	// StatusEmpty means the fetch yielded no usable rows; the checkpoint
	// is left untouched. This is a success, not a failure.
	StatusEmpty Status = "empty"
	// StatusFailed means the fetch or normalization for this key failed;
	// other keys in the cycle are unaffected.
	StatusFailed Status = "failed"
)

// KeyResult records the outcome for a single key in a cycle.
type KeyResult struct {
	Key  string
	Prev domain.Date
	// HadPrev reports whether a checkpoint existed before the cycle.
	HadPrev bool
	New     domain.Date
	HasNew  bool
	Rows    int
	Status  Status
	Err     error
}

// CycleResult summarizes one ingestion cycle.
type CycleResult struct {
	RunID       uuid.UUID
	Domain      schema.Domain
	Started     time.Time
	Duration    time.Duration
	Keys        []KeyResult
	RowsWritten int
	Failures    int
}

// Runner drives incremental ingestion cycles. Each cycle resolves a fetch
// window per key from its checkpoint, fetches, normalizes, appends and
// checkpoints. Fetch and normalization problems fail only their key;
// storage errors abort the whole cycle.
type Runner struct {
	priceSource   PriceSource
	macroSource   MacroSource
	featureSource FeatureSource

	priceCheckpoints   storage.PriceCheckpointStore
	macroCheckpoints   storage.MacroCheckpointStore
	featureCheckpoints storage.FeatureCheckpointStore

	priceDataset   storage.PriceDatasetAppender
	macroDataset   storage.MacroDatasetAppender
	featureDataset storage.FeatureDatasetAppender

	lookbackDays int
	macroStart   domain.Date
	concurrency  int
	logger       *log.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

// Options contains configuration for creating a Runner. Sources, stores
// and appenders are only required for the cycle types actually run.
type Options struct {
	PriceSource   PriceSource
	MacroSource   MacroSource
	FeatureSource FeatureSource

	PriceCheckpoints   storage.PriceCheckpointStore
	MacroCheckpoints   storage.MacroCheckpointStore
	FeatureCheckpoints storage.FeatureCheckpointStore

	PriceDataset   storage.PriceDatasetAppender
	MacroDataset   storage.MacroDatasetAppender
	FeatureDataset storage.FeatureDatasetAppender

	LookbackDays int         // Default: 30 - window when no checkpoint exists
	MacroStart   domain.Date // Default: 1990-01-01 - first macro fetch start
	Concurrency  int         // Default: 1 - keys processed in parallel
	Logger       *log.Logger
	Metrics      *observability.Metrics
	Now          func() time.Time // Default: time.Now, injectable for tests
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts Options) *Runner {
	lookback := opts.LookbackDays
	if lookback == 0 {
		lookback = 30
	}

	macroStart := opts.MacroStart
	if macroStart.IsZero() {
		macroStart = domain.NewDate(1990, time.January, 1)
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		priceSource:        opts.PriceSource,
		macroSource:        opts.MacroSource,
		featureSource:      opts.FeatureSource,
		priceCheckpoints:   opts.PriceCheckpoints,
		macroCheckpoints:   opts.MacroCheckpoints,
		featureCheckpoints: opts.FeatureCheckpoints,
		priceDataset:       opts.PriceDataset,
		macroDataset:       opts.MacroDataset,
		featureDataset:     opts.FeatureDataset,
		lookbackDays:       lookback,
		macroStart:         macroStart,
		concurrency:        concurrency,
		logger:             logger,
		metrics:            opts.Metrics,
		now:                now,
	}
}

// RunPrices runs one price ingestion cycle over tickers.
// The returned CycleResult is valid even when err is non-nil: it holds the
// keys completed before the cycle aborted.
func (r *Runner) RunPrices(ctx context.Context, tickers []string) (*CycleResult, error) {
	result := r.newResult(schema.DomainPrices)
	today := domain.DateOf(r.now().UTC())

	err := r.forEachKey(ctx, tickers, result, func(ctx context.Context, ticker string) (KeyResult, error) {
		kr := KeyResult{Key: ticker}

		last, ok, err := r.priceCheckpoints.LastDate(ctx, ticker)
		if err != nil {
			return kr, fmt.Errorf("read price checkpoint for %s: %w", ticker, err)
		}
		kr.Prev, kr.HadPrev = last, ok

		start := r.windowStart(last, ok, today)
		if start.After(today) {
			kr.Status = StatusEmpty
			return kr, nil
		}

		tbl, err := r.priceSource.History(ctx, ticker, start, today)
		if err != nil {
			kr.Status = StatusFailed
			kr.Err = fmt.Errorf("fetch prices for %s: %w", ticker, err)
			return kr, nil
		}

		rows := normalize.Prices(tbl, ticker)
		if len(rows) == 0 {
			kr.Status = StatusEmpty
			return kr, nil
		}

		n, err := r.priceDataset.Append(ctx, rows)
		if err != nil {
			return kr, fmt.Errorf("append prices for %s: %w", ticker, err)
		}

		cp, _, err := r.priceCheckpoints.Upsert(ctx, ticker, rows)
		if err != nil {
			return kr, fmt.Errorf("upsert price checkpoint for %s: %w", ticker, err)
		}

		kr.New, kr.HasNew = cp, true
		kr.Rows = n
		kr.Status = StatusOK
		return kr, nil
	})

	r.finish(result, err)
	return result, err
}

// RunMacro runs one macro ingestion cycle over zones. Zones with no
// checkpoint fetch from the configured historical start rather than a
// short lookback.
func (r *Runner) RunMacro(ctx context.Context, zones []string) (*CycleResult, error) {
	result := r.newResult(schema.DomainMacro)
	today := domain.DateOf(r.now().UTC())

	err := r.forEachKey(ctx, zones, result, func(ctx context.Context, zone string) (KeyResult, error) {
		kr := KeyResult{Key: zone}

		last, ok, err := r.macroCheckpoints.LastDate(ctx, zone)
		if err != nil {
			return kr, fmt.Errorf("read macro checkpoint for %s: %w", zone, err)
		}
		kr.Prev, kr.HadPrev = last, ok

		start := r.macroStart
		if ok {
			start = last.AddDays(1)
		}
		if start.After(today) {
			kr.Status = StatusEmpty
			return kr, nil
		}

		tbl, err := r.macroSource.History(ctx, zone, start, today)
		if err != nil {
			kr.Status = StatusFailed
			kr.Err = fmt.Errorf("fetch macro for %s: %w", zone, err)
			return kr, nil
		}

		rows := normalize.Macro(tbl, zone)
		if len(rows) == 0 {
			kr.Status = StatusEmpty
			return kr, nil
		}

		n, err := r.macroDataset.Append(ctx, rows)
		if err != nil {
			return kr, fmt.Errorf("append macro for %s: %w", zone, err)
		}

		cp, _, err := r.macroCheckpoints.Upsert(ctx, zone, rows)
		if err != nil {
			return kr, fmt.Errorf("upsert macro checkpoint for %s: %w", zone, err)
		}

		kr.New, kr.HasNew = cp, true
		kr.Rows = n
		kr.Status = StatusOK
		return kr, nil
	})

	r.finish(result, err)
	return result, err
}

// RunFeatures runs one feature ingestion cycle for a feature family over
// tickers. Checkpoints are per (feature, ticker).
func (r *Runner) RunFeatures(ctx context.Context, feature string, tickers []string) (*CycleResult, error) {
	result := r.newResult(schema.DomainFeature)
	today := domain.DateOf(r.now().UTC())

	err := r.forEachKey(ctx, tickers, result, func(ctx context.Context, ticker string) (KeyResult, error) {
		kr := KeyResult{Key: ticker}

		last, ok, err := r.featureCheckpoints.LastDate(ctx, feature, ticker)
		if err != nil {
			return kr, fmt.Errorf("read feature checkpoint for %s/%s: %w", feature, ticker, err)
		}
		kr.Prev, kr.HadPrev = last, ok

		start := r.windowStart(last, ok, today)
		if start.After(today) {
			kr.Status = StatusEmpty
			return kr, nil
		}

		tbl, err := r.featureSource.History(ctx, feature, ticker, start, today)
		if err != nil {
			kr.Status = StatusFailed
			kr.Err = fmt.Errorf("fetch feature %s for %s: %w", feature, ticker, err)
			return kr, nil
		}

		rows := normalize.Features(tbl, feature, ticker)
		if len(rows) == 0 {
			kr.Status = StatusEmpty
			return kr, nil
		}

		n, err := r.featureDataset.Append(ctx, rows)
		if err != nil {
			return kr, fmt.Errorf("append feature %s for %s: %w", feature, ticker, err)
		}

		cp, _, err := r.featureCheckpoints.Upsert(ctx, feature, rows)
		if err != nil {
			return kr, fmt.Errorf("upsert feature checkpoint for %s/%s: %w", feature, ticker, err)
		}

		kr.New, kr.HasNew = cp, true
		kr.Rows = n
		kr.Status = StatusOK
		return kr, nil
	})

	r.finish(result, err)
	return result, err
}

// windowStart resolves the incremental fetch start: the day after the
// checkpoint when one exists, otherwise today minus the lookback.
func (r *Runner) windowStart(last domain.Date, ok bool, today domain.Date) domain.Date {
	if ok {
		return last.AddDays(1)
	}
	return today.AddDays(-r.lookbackDays)
}

// forEachKey runs fn for every key, recording one KeyResult each. A
// non-nil error from fn is a storage failure: it cancels remaining keys
// and aborts the cycle. Keys run concurrently up to r.concurrency.
func (r *Runner) forEachKey(ctx context.Context, keys []string, result *CycleResult, fn func(ctx context.Context, key string) (KeyResult, error)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var mu sync.Mutex
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			kr, err := fn(ctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Keys = append(result.Keys, kr)
			mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) newResult(d schema.Domain) *CycleResult {
	return &CycleResult{
		RunID:   uuid.New(),
		Domain:  d,
		Started: r.now().UTC(),
	}
}

// finish computes cycle totals, records metrics and logs the summary.
func (r *Runner) finish(result *CycleResult, fatal error) {
	result.Duration = r.now().UTC().Sub(result.Started)

	for _, kr := range result.Keys {
		result.RowsWritten += kr.Rows
		if kr.Status == StatusFailed {
			result.Failures++
			r.logger.Printf("[ingest] %s key %s failed: %v", result.Domain, kr.Key, kr.Err)
		}
	}

	status := "ok"
	if fatal != nil || result.Failures > 0 {
		status = "failed"
	}

	if m := r.metrics; m != nil {
		d := string(result.Domain)
		m.CycleRunsTotal.WithLabelValues(d, status).Inc()
		m.CycleDuration.WithLabelValues(d).Observe(result.Duration.Seconds())
		m.RowsWritten.WithLabelValues(d).Add(float64(result.RowsWritten))
		for _, kr := range result.Keys {
			m.KeysProcessed.WithLabelValues(d, string(kr.Status)).Inc()
			if kr.Status == StatusFailed {
				m.FetchErrors.WithLabelValues(d).Inc()
			}
		}
		if fatal != nil {
			m.DBQueryErrors.WithLabelValues(d).Inc()
		}
		if status == "ok" {
			m.LastSuccessfulRun.WithLabelValues(d).SetToCurrentTime()
			now := r.now().UTC()
			for _, kr := range result.Keys {
				if kr.HasNew {
					lag := now.Sub(kr.New.Time()).Hours() / 24
					m.CheckpointLag.WithLabelValues(d, kr.Key).Set(lag)
				}
			}
		}
	}

	if fatal != nil {
		r.logger.Printf("[ingest] %s cycle %s aborted after %d keys: %v", result.Domain, result.RunID, len(result.Keys), fatal)
		return
	}
	r.logger.Printf("[ingest] %s cycle %s: %d keys, %d rows, %d failures in %v",
		result.Domain, result.RunID, len(result.Keys), result.RowsWritten, result.Failures, result.Duration)
}
