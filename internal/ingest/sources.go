// Package ingest orchestrates incremental ingestion cycles: resolve the
// fetch window from the checkpoint, fetch raw history, normalize, append
// to the dataset, then advance the checkpoint.
package ingest

import (
	"context"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/provider"
)

// PriceSource fetches raw daily price history for one ticker.
// Implementations return provider.ErrUnavailable when the upstream cannot
// serve the window; any error is treated as a per-key fetch failure.
type PriceSource interface {
	History(ctx context.Context, ticker string, start, end domain.Date) (*provider.Table, error)
}

// MacroSource fetches raw macro indicator history for one zone.
type MacroSource interface {
	History(ctx context.Context, zone string, start, end domain.Date) (*provider.Table, error)
}

// FeatureSource fetches raw feature event history for one
// (feature, ticker) pair.
type FeatureSource interface {
	History(ctx context.Context, feature, ticker string, start, end domain.Date) (*provider.Table, error)
}
