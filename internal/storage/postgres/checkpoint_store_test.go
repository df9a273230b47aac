package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

func priceRow(ticker string, date domain.Date, close float64) *domain.PriceRow {
	return &domain.PriceRow{
		Ticker:   ticker,
		Date:     date,
		Year:     date.Time().Year(),
		Open:     ptr(close - 1),
		High:     ptr(close + 1),
		Low:      ptr(close - 2),
		Close:    ptr(close),
		AdjClose: ptr(close),
		Volume:   1000,
	}
}

func TestPriceCheckpointStore_AbsentBeforeFirstUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceCheckpointStore(pool)
	ctx := context.Background()

	_, ok, err := store.LastDate(ctx, "SPY")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPriceCheckpointStore_UpsertAndLastDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceCheckpointStore(pool)
	ctx := context.Background()

	jan2 := domain.NewDate(2024, time.January, 2)
	jan5 := domain.NewDate(2024, time.January, 5)

	date, ok, err := store.Upsert(ctx, "SPY", []*domain.PriceRow{
		priceRow("SPY", jan5, 101.5),
		priceRow("SPY", jan2, 100.0),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan5, date)

	last, ok, err := store.LastDate(ctx, "SPY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan5, last)

	// Checkpoints are per ticker.
	_, ok, err = store.LastDate(ctx, "QQQ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPriceCheckpointStore_NoRegressionOnOlderBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceCheckpointStore(pool)
	ctx := context.Background()

	jan2 := domain.NewDate(2024, time.January, 2)
	jan5 := domain.NewDate(2024, time.January, 5)

	_, _, err := store.Upsert(ctx, "SPY", []*domain.PriceRow{priceRow("SPY", jan5, 101.5)})
	require.NoError(t, err)

	// Replaying an older batch snapshots that date but MAX(date) holds.
	_, _, err = store.Upsert(ctx, "SPY", []*domain.PriceRow{priceRow("SPY", jan2, 100.0)})
	require.NoError(t, err)

	last, ok, err := store.LastDate(ctx, "SPY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan5, last)
}

func TestPriceCheckpointStore_SnapshotValues(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceCheckpointStore(pool)
	ctx := context.Background()

	jan5 := domain.NewDate(2024, time.January, 5)
	_, _, err := store.Upsert(ctx, "SPY", []*domain.PriceRow{priceRow("SPY", jan5, 101.5)})
	require.NoError(t, err)

	var close *float64
	var volume int64
	err = pool.QueryRow(ctx, `
		SELECT close, volume FROM price_checkpoints WHERE ticker = $1 AND date = $2
	`, "SPY", jan5.Time()).Scan(&close, &volume)
	require.NoError(t, err)
	require.NotNil(t, close)
	assert.Equal(t, 101.5, *close)
	assert.Equal(t, int64(1000), volume)
}

func TestPriceCheckpointStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceCheckpointStore(pool)
	ctx := context.Background()

	_, _, err := store.LastDate(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, _, err = store.Upsert(ctx, "", nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// Empty batch is a no-op, not an error.
	_, ok, err := store.Upsert(ctx, "SPY", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMacroCheckpointStore_UpsertAndLastDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMacroCheckpointStore(pool)
	ctx := context.Background()

	mar1 := domain.NewDate(2024, time.March, 1)
	feb1 := domain.NewDate(2024, time.February, 1)

	date, ok, err := store.Upsert(ctx, "US", []*domain.MacroRow{
		{Zone: "US", Date: feb1, CPI: ptr(3.1)},
		{Zone: "US", Date: mar1, CPI: ptr(3.2), Policy: ptr(5.25)},
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mar1, date)

	last, ok, err := store.LastDate(ctx, "US")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mar1, last)

	_, ok, err = store.LastDate(ctx, "EU")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeatureCheckpointStore_PerTickerDates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureCheckpointStore(pool)
	ctx := context.Background()

	jan3 := domain.NewDate(2024, time.January, 3)
	jan7 := domain.NewDate(2024, time.January, 7)

	max, ok, err := store.Upsert(ctx, "news_sentiment", []*domain.FeatureRow{
		{Feature: "news_sentiment", Ticker: "SPY", Date: jan3},
		{Feature: "news_sentiment", Ticker: "SPY", Date: jan7},
		{Feature: "news_sentiment", Ticker: "QQQ", Date: jan3},
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan7, max)

	last, ok, err := store.LastDate(ctx, "news_sentiment", "SPY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan7, last)

	last, ok, err = store.LastDate(ctx, "news_sentiment", "QQQ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan3, last)

	all, err := store.AllLastDates(ctx, "news_sentiment")
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Date{"SPY": jan7, "QQQ": jan3}, all)

	// Other feature families are untouched.
	_, ok, err = store.LastDate(ctx, "social_volume", "SPY")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeatureCheckpointStore_OverwriteSemantics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFeatureCheckpointStore(pool)
	ctx := context.Background()

	jan3 := domain.NewDate(2024, time.January, 3)
	jan7 := domain.NewDate(2024, time.January, 7)

	_, _, err := store.Upsert(ctx, "news_sentiment", []*domain.FeatureRow{
		{Feature: "news_sentiment", Ticker: "SPY", Date: jan7},
	})
	require.NoError(t, err)

	// The checkpoint tracks the last upsert, not the historical maximum.
	// Callers keep it monotonic by only fetching past the checkpoint.
	_, _, err = store.Upsert(ctx, "news_sentiment", []*domain.FeatureRow{
		{Feature: "news_sentiment", Ticker: "SPY", Date: jan3},
	})
	require.NoError(t, err)

	last, ok, err := store.LastDate(ctx, "news_sentiment", "SPY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan3, last)
}
