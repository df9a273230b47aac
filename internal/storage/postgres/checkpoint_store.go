package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

// PriceCheckpointStore implements storage.PriceCheckpointStore.
// The price_checkpoints table accumulates one snapshot row per
// (ticker, date); the effective checkpoint is MAX(date) per ticker, so the
// checkpoint read never decreases even if an older batch is re-upserted.
type PriceCheckpointStore struct {
	pool *Pool
}

// NewPriceCheckpointStore creates a new PostgreSQL price checkpoint store.
func NewPriceCheckpointStore(pool *Pool) *PriceCheckpointStore {
	return &PriceCheckpointStore{pool: pool}
}

var _ storage.PriceCheckpointStore = (*PriceCheckpointStore)(nil)

// LastDate returns the latest checkpointed date for ticker, or absent.
func (s *PriceCheckpointStore) LastDate(ctx context.Context, ticker string) (domain.Date, bool, error) {
	if ticker == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}

	var last *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT MAX(date) FROM price_checkpoints WHERE ticker = $1
	`, ticker).Scan(&last)
	if err != nil {
		return domain.Date{}, false, fmt.Errorf("query last price date: %w", err)
	}
	if last == nil {
		return domain.Date{}, false, nil
	}

	return domain.DateOf(*last), true, nil
}

// Upsert writes the snapshot of the latest row in rows and returns its date.
func (s *PriceCheckpointStore) Upsert(ctx context.Context, ticker string, rows []*domain.PriceRow) (domain.Date, bool, error) {
	if ticker == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return domain.Date{}, false, nil
	}

	last := rows[0]
	for _, r := range rows[1:] {
		if r.Date.After(last.Date) {
			last = r
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_checkpoints (ticker, date, open, high, low, close, adj_close, volume, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (ticker, date) DO UPDATE SET
			open       = EXCLUDED.open,
			high       = EXCLUDED.high,
			low        = EXCLUDED.low,
			close      = EXCLUDED.close,
			adj_close  = EXCLUDED.adj_close,
			volume     = EXCLUDED.volume,
			updated_at = NOW()
	`, ticker, last.Date.Time(), last.Open, last.High, last.Low, last.Close, last.AdjClose, last.Volume)
	if err != nil {
		return domain.Date{}, false, fmt.Errorf("upsert price checkpoint: %w", err)
	}

	return last.Date, true, nil
}

// MacroCheckpointStore implements storage.MacroCheckpointStore using the
// macro_checkpoints table, keyed (zone, date) with MAX(date) reads.
type MacroCheckpointStore struct {
	pool *Pool
}

// NewMacroCheckpointStore creates a new PostgreSQL macro checkpoint store.
func NewMacroCheckpointStore(pool *Pool) *MacroCheckpointStore {
	return &MacroCheckpointStore{pool: pool}
}

var _ storage.MacroCheckpointStore = (*MacroCheckpointStore)(nil)

// LastDate returns the latest checkpointed date for zone, or absent.
func (s *MacroCheckpointStore) LastDate(ctx context.Context, zone string) (domain.Date, bool, error) {
	if zone == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}

	var last *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT MAX(date) FROM macro_checkpoints WHERE zone = $1
	`, zone).Scan(&last)
	if err != nil {
		return domain.Date{}, false, fmt.Errorf("query last macro date: %w", err)
	}
	if last == nil {
		return domain.Date{}, false, nil
	}

	return domain.DateOf(*last), true, nil
}

// Upsert writes the snapshot of the latest row in rows and returns its date.
func (s *MacroCheckpointStore) Upsert(ctx context.Context, zone string, rows []*domain.MacroRow) (domain.Date, bool, error) {
	if zone == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return domain.Date{}, false, nil
	}

	last := rows[0]
	for _, r := range rows[1:] {
		if r.Date.After(last.Date) {
			last = r
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO macro_checkpoints (zone, date, cpi, gdp, policy, unemp, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (zone, date) DO UPDATE SET
			cpi        = EXCLUDED.cpi,
			gdp        = EXCLUDED.gdp,
			policy     = EXCLUDED.policy,
			unemp      = EXCLUDED.unemp,
			updated_at = NOW()
	`, zone, last.Date.Time(), last.CPI, last.GDP, last.Policy, last.Unemp)
	if err != nil {
		return domain.Date{}, false, fmt.Errorf("upsert macro checkpoint: %w", err)
	}

	return last.Date, true, nil
}

// FeatureCheckpointStore implements storage.FeatureCheckpointStore using the
// feature_checkpoints table, keyed (feature, ticker).
type FeatureCheckpointStore struct {
	pool *Pool
}

// NewFeatureCheckpointStore creates a new PostgreSQL feature checkpoint store.
func NewFeatureCheckpointStore(pool *Pool) *FeatureCheckpointStore {
	return &FeatureCheckpointStore{pool: pool}
}

var _ storage.FeatureCheckpointStore = (*FeatureCheckpointStore)(nil)

// LastDate returns the checkpoint date for (feature, ticker), or absent.
func (s *FeatureCheckpointStore) LastDate(ctx context.Context, feature, ticker string) (domain.Date, bool, error) {
	if feature == "" || ticker == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}

	var last time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT date FROM feature_checkpoints WHERE feature = $1 AND ticker = $2
	`, feature, ticker).Scan(&last)
	if err != nil {
		if isNotFoundError(err) {
			return domain.Date{}, false, nil
		}
		return domain.Date{}, false, fmt.Errorf("query last feature date: %w", err)
	}

	return domain.DateOf(last), true, nil
}

// AllLastDates returns ticker -> latest date for one feature family.
func (s *FeatureCheckpointStore) AllLastDates(ctx context.Context, feature string) (map[string]domain.Date, error) {
	if feature == "" {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ticker, date FROM feature_checkpoints WHERE feature = $1
	`, feature)
	if err != nil {
		return nil, fmt.Errorf("query feature checkpoints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Date)
	for rows.Next() {
		var ticker string
		var date time.Time
		if err := rows.Scan(&ticker, &date); err != nil {
			return nil, fmt.Errorf("scan feature checkpoint: %w", err)
		}
		out[ticker] = domain.DateOf(date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature checkpoints: %w", err)
	}

	return out, nil
}

// Upsert overwrites each ticker's checkpoint with that ticker's maximum row
// date and returns the maximum date across all rows.
func (s *FeatureCheckpointStore) Upsert(ctx context.Context, feature string, rows []*domain.FeatureRow) (domain.Date, bool, error) {
	if feature == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return domain.Date{}, false, nil
	}

	perTicker := make(map[string]domain.Date)
	var max domain.Date
	for _, r := range rows {
		if cur, ok := perTicker[r.Ticker]; !ok || r.Date.After(cur) {
			perTicker[r.Ticker] = r.Date
		}
		if r.Date.After(max) {
			max = r.Date
		}
	}

	for ticker, date := range perTicker {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO feature_checkpoints (feature, ticker, date, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (feature, ticker) DO UPDATE SET
				date       = EXCLUDED.date,
				updated_at = NOW()
		`, feature, ticker, date.Time())
		if err != nil {
			return domain.Date{}, false, fmt.Errorf("upsert feature checkpoint %s/%s: %w", feature, ticker, err)
		}
	}

	return max, true, nil
}
