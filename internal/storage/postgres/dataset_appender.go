package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

// PriceDatasetAppender implements storage.PriceDatasetAppender on the
// prices table. Rows are upserted on (ticker, date) so retried appends are
// idempotent and later runs supersede earlier values.
type PriceDatasetAppender struct {
	pool *Pool
}

// NewPriceDatasetAppender creates a new PostgreSQL price dataset appender.
func NewPriceDatasetAppender(pool *Pool) *PriceDatasetAppender {
	return &PriceDatasetAppender{pool: pool}
}

var _ storage.PriceDatasetAppender = (*PriceDatasetAppender)(nil)

// Append upserts rows and returns the count durably written.
func (a *PriceDatasetAppender) Append(ctx context.Context, rows []*domain.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		if r == nil || r.Ticker == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		batch.Queue(`
			INSERT INTO prices (ticker, date, year, open, high, low, close, adj_close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (ticker, date) DO UPDATE SET
				year      = EXCLUDED.year,
				open      = EXCLUDED.open,
				high      = EXCLUDED.high,
				low       = EXCLUDED.low,
				close     = EXCLUDED.close,
				adj_close = EXCLUDED.adj_close,
				volume    = EXCLUDED.volume
		`, r.Ticker, r.Date.Time(), r.Year, r.Open, r.High, r.Low, r.Close, r.AdjClose, r.Volume)
	}

	if err := a.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("append prices: %w", err)
	}

	return len(rows), nil
}

// MacroDatasetAppender implements storage.MacroDatasetAppender on the macro
// table, upserting on (zone, date).
type MacroDatasetAppender struct {
	pool *Pool
}

// NewMacroDatasetAppender creates a new PostgreSQL macro dataset appender.
func NewMacroDatasetAppender(pool *Pool) *MacroDatasetAppender {
	return &MacroDatasetAppender{pool: pool}
}

var _ storage.MacroDatasetAppender = (*MacroDatasetAppender)(nil)

// Append upserts rows and returns the count durably written.
func (a *MacroDatasetAppender) Append(ctx context.Context, rows []*domain.MacroRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		if r == nil || r.Zone == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		batch.Queue(`
			INSERT INTO macro (zone, date, cpi, gdp, policy, unemp)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (zone, date) DO UPDATE SET
				cpi    = EXCLUDED.cpi,
				gdp    = EXCLUDED.gdp,
				policy = EXCLUDED.policy,
				unemp  = EXCLUDED.unemp
		`, r.Zone, r.Date.Time(), r.CPI, r.GDP, r.Policy, r.Unemp)
	}

	if err := a.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("append macro: %w", err)
	}

	return len(rows), nil
}

// FeatureDatasetAppender implements storage.FeatureDatasetAppender on the
// features table, upserting on (feature, ticker, date).
type FeatureDatasetAppender struct {
	pool *Pool
}

// NewFeatureDatasetAppender creates a new PostgreSQL feature dataset appender.
func NewFeatureDatasetAppender(pool *Pool) *FeatureDatasetAppender {
	return &FeatureDatasetAppender{pool: pool}
}

var _ storage.FeatureDatasetAppender = (*FeatureDatasetAppender)(nil)

// Append upserts rows and returns the count durably written.
func (a *FeatureDatasetAppender) Append(ctx context.Context, rows []*domain.FeatureRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		if r == nil || r.Feature == "" || r.Ticker == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		batch.Queue(`
			INSERT INTO features (feature, ticker, date)
			VALUES ($1, $2, $3)
			ON CONFLICT (feature, ticker, date) DO NOTHING
		`, r.Feature, r.Ticker, r.Date.Time())
	}

	if err := a.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("append features: %w", err)
	}

	return len(rows), nil
}
