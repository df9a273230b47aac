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

func countRows(t *testing.T, pool *Pool, table string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestPriceDatasetAppender_AppendAndReplay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	appender := NewPriceDatasetAppender(pool)
	ctx := context.Background()

	jan2 := domain.NewDate(2024, time.January, 2)
	jan3 := domain.NewDate(2024, time.January, 3)

	rows := []*domain.PriceRow{
		priceRow("SPY", jan2, 100.0),
		priceRow("SPY", jan3, 101.0),
		priceRow("QQQ", jan2, 400.0),
	}

	n, err := appender.Append(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, countRows(t, pool, "prices"))

	// Replaying the same batch leaves the row count unchanged.
	_, err = appender.Append(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, countRows(t, pool, "prices"))
}

func TestPriceDatasetAppender_LastWriteWins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	appender := NewPriceDatasetAppender(pool)
	ctx := context.Background()

	jan2 := domain.NewDate(2024, time.January, 2)

	_, err := appender.Append(ctx, []*domain.PriceRow{priceRow("SPY", jan2, 100.0)})
	require.NoError(t, err)

	// A later run revises the same (ticker, date) row.
	_, err = appender.Append(ctx, []*domain.PriceRow{priceRow("SPY", jan2, 120.0)})
	require.NoError(t, err)

	var close *float64
	err = pool.QueryRow(ctx, `
		SELECT close FROM prices WHERE ticker = $1 AND date = $2
	`, "SPY", jan2.Time()).Scan(&close)
	require.NoError(t, err)
	require.NotNil(t, close)
	assert.Equal(t, 120.0, *close)
	assert.Equal(t, 1, countRows(t, pool, "prices"))
}

func TestPriceDatasetAppender_NullableValues(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	appender := NewPriceDatasetAppender(pool)
	ctx := context.Background()

	jan2 := domain.NewDate(2024, time.January, 2)
	row := &domain.PriceRow{Ticker: "SPY", Date: jan2, Year: 2024}

	_, err := appender.Append(ctx, []*domain.PriceRow{row})
	require.NoError(t, err)

	var open, close *float64
	err = pool.QueryRow(ctx, `
		SELECT open, close FROM prices WHERE ticker = $1 AND date = $2
	`, "SPY", jan2.Time()).Scan(&open, &close)
	require.NoError(t, err)
	assert.Nil(t, open)
	assert.Nil(t, close)
}

func TestPriceDatasetAppender_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	appender := NewPriceDatasetAppender(pool)
	ctx := context.Background()

	_, err := appender.Append(ctx, []*domain.PriceRow{{Ticker: "", Date: domain.NewDate(2024, time.January, 2)}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = appender.Append(ctx, []*domain.PriceRow{{Ticker: "SPY"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	n, err := appender.Append(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMacroDatasetAppender_AppendAndRevise(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	appender := NewMacroDatasetAppender(pool)
	ctx := context.Background()

	feb1 := domain.NewDate(2024, time.February, 1)

	_, err := appender.Append(ctx, []*domain.MacroRow{
		{Zone: "US", Date: feb1, CPI: ptr(3.1), Unemp: ptr(3.9)},
	})
	require.NoError(t, err)

	// Preliminary figures get revised in place.
	_, err = appender.Append(ctx, []*domain.MacroRow{
		{Zone: "US", Date: feb1, CPI: ptr(3.2), Unemp: ptr(3.8)},
	})
	require.NoError(t, err)

	var cpi *float64
	err = pool.QueryRow(ctx, `
		SELECT cpi FROM macro WHERE zone = $1 AND date = $2
	`, "US", feb1.Time()).Scan(&cpi)
	require.NoError(t, err)
	require.NotNil(t, cpi)
	assert.Equal(t, 3.2, *cpi)
	assert.Equal(t, 1, countRows(t, pool, "macro"))
}

func TestFeatureDatasetAppender_IdempotentInsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	appender := NewFeatureDatasetAppender(pool)
	ctx := context.Background()

	jan2 := domain.NewDate(2024, time.January, 2)
	jan3 := domain.NewDate(2024, time.January, 3)

	rows := []*domain.FeatureRow{
		{Feature: "news_sentiment", Ticker: "SPY", Date: jan2},
		{Feature: "news_sentiment", Ticker: "SPY", Date: jan3},
		{Feature: "news_sentiment", Ticker: "QQQ", Date: jan2},
	}

	n, err := appender.Append(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Feature rows carry no values, so replays are plain DO NOTHING.
	_, err = appender.Append(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, countRows(t, pool, "features"))
}
