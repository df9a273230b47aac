package storage

import (
	"context"

	"github.com/loic-mmt/BloomDash/internal/domain"
)

// PriceCheckpointStore tracks the latest ingested date per ticker, together
// with an OHLCV snapshot of the last appended row.
type PriceCheckpointStore interface {
	// LastDate returns the checkpoint date for ticker. The second return
	// is false when the ticker has never been checkpointed; that is an
	// ordinary outcome, not an error. An error means the store itself
	// failed and the whole cycle must stop.
	LastDate(ctx context.Context, ticker string) (domain.Date, bool, error)

	// Upsert computes the maximum date across rows, overwrites the
	// checkpoint for ticker with that date and the matching row's value
	// snapshot, and returns the written date. An empty rows slice is a
	// no-op returning an absent date. Conflict resolution is
	// last-write-wins on (ticker, date).
	Upsert(ctx context.Context, ticker string, rows []*domain.PriceRow) (domain.Date, bool, error)
}

// MacroCheckpointStore tracks the latest ingested date per zone.
type MacroCheckpointStore interface {
	// LastDate returns the checkpoint date for zone, or absent.
	LastDate(ctx context.Context, zone string) (domain.Date, bool, error)

	// Upsert overwrites the checkpoint for zone with the maximum row date
	// and that row's value snapshot. Empty rows is a no-op returning absent.
	Upsert(ctx context.Context, zone string, rows []*domain.MacroRow) (domain.Date, bool, error)
}

// FeatureCheckpointStore tracks the latest computed date per
// (feature, ticker) pair.
type FeatureCheckpointStore interface {
	// LastDate returns the checkpoint date for the pair, or absent.
	LastDate(ctx context.Context, feature, ticker string) (domain.Date, bool, error)

	// AllLastDates returns ticker -> latest date for one feature family.
	AllLastDates(ctx context.Context, feature string) (map[string]domain.Date, error)

	// Upsert groups rows by ticker and overwrites each pair's checkpoint
	// with that ticker's maximum date. Returns the maximum date across all
	// rows. Empty rows is a no-op returning absent.
	Upsert(ctx context.Context, feature string, rows []*domain.FeatureRow) (domain.Date, bool, error)
}

// PriceDatasetAppender durably appends canonical price rows, deduplicating
// by (ticker, date). Appending the same row twice must not create two stored
// rows; the second append overwrites (last-write-wins). The physical
// partitioning strategy is the implementation's concern.
type PriceDatasetAppender interface {
	// Append returns the count of rows durably written. An empty rows
	// slice returns 0 without side effects.
	Append(ctx context.Context, rows []*domain.PriceRow) (int, error)
}

// MacroDatasetAppender durably appends canonical macro rows, deduplicating
// by (zone, date).
type MacroDatasetAppender interface {
	Append(ctx context.Context, rows []*domain.MacroRow) (int, error)
}

// FeatureDatasetAppender durably appends canonical feature rows,
// deduplicating by (feature, ticker, date).
type FeatureDatasetAppender interface {
	Append(ctx context.Context, rows []*domain.FeatureRow) (int, error)
}
