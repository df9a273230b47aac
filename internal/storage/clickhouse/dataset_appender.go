package clickhouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

// PriceDatasetAppender implements storage.PriceDatasetAppender on the
// prices table. The table is a ReplacingMergeTree ordered by
// (ticker, date) with inserted_at as the version column, so a later
// insert of the same key wins after merges.
type PriceDatasetAppender struct {
	conn *Conn
}

// NewPriceDatasetAppender creates a new ClickHouse price dataset appender.
func NewPriceDatasetAppender(conn *Conn) *PriceDatasetAppender {
	return &PriceDatasetAppender{conn: conn}
}

var _ storage.PriceDatasetAppender = (*PriceDatasetAppender)(nil)

// Append inserts rows and returns the count written.
func (a *PriceDatasetAppender) Append(ctx context.Context, rows []*domain.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO prices (
			ticker, date, year, open, high, low, close, adj_close, volume, inserted_at
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare price batch: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rows {
		if r == nil || r.Ticker == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Ticker, r.Date.Time(), uint16(r.Year),
			nullable(r.Open), nullable(r.High), nullable(r.Low),
			nullable(r.Close), nullable(r.AdjClose),
			uint64(r.Volume), now,
		)
		if err != nil {
			return 0, fmt.Errorf("append price row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send price batch: %w", err)
	}

	return len(rows), nil
}

// MacroDatasetAppender implements storage.MacroDatasetAppender on the
// macro table, a ReplacingMergeTree ordered by (zone, date).
type MacroDatasetAppender struct {
	conn *Conn
}

// NewMacroDatasetAppender creates a new ClickHouse macro dataset appender.
func NewMacroDatasetAppender(conn *Conn) *MacroDatasetAppender {
	return &MacroDatasetAppender{conn: conn}
}

var _ storage.MacroDatasetAppender = (*MacroDatasetAppender)(nil)

// Append inserts rows and returns the count written.
func (a *MacroDatasetAppender) Append(ctx context.Context, rows []*domain.MacroRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO macro (zone, date, cpi, gdp, policy, unemp, inserted_at)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare macro batch: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rows {
		if r == nil || r.Zone == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Zone, r.Date.Time(),
			nullable(r.CPI), nullable(r.GDP), nullable(r.Policy), nullable(r.Unemp),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("append macro row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send macro batch: %w", err)
	}

	return len(rows), nil
}

// FeatureDatasetAppender implements storage.FeatureDatasetAppender on the
// features table, a ReplacingMergeTree ordered by (feature, ticker, date).
type FeatureDatasetAppender struct {
	conn *Conn
}

// NewFeatureDatasetAppender creates a new ClickHouse feature dataset appender.
func NewFeatureDatasetAppender(conn *Conn) *FeatureDatasetAppender {
	return &FeatureDatasetAppender{conn: conn}
}

var _ storage.FeatureDatasetAppender = (*FeatureDatasetAppender)(nil)

// Append inserts rows and returns the count written.
func (a *FeatureDatasetAppender) Append(ctx context.Context, rows []*domain.FeatureRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO features (feature, ticker, date, inserted_at)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare feature batch: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rows {
		if r == nil || r.Feature == "" || r.Ticker == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		if err := batch.Append(r.Feature, r.Ticker, r.Date.Time(), now); err != nil {
			return 0, fmt.Errorf("append feature row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send feature batch: %w", err)
	}

	return len(rows), nil
}

// nullable maps an absent value to NULL and guards against NaN leaking in
// from upstream arithmetic.
func nullable(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	return v
}
