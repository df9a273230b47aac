package ingest

import (
	"context"
	"fmt"

	"github.com/loic-mmt/BloomDash/internal/normalize"
	"github.com/loic-mmt/BloomDash/internal/provider"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

// UpsertFeatureTable ingests a pre-built feature table in one shot: every
// (ticker, date) pair in tbl becomes a feature row and each ticker's
// checkpoint is overwritten with its latest date. The table must carry
// "ticker" and "date" columns; a missing column is reported by name via
// normalize.ErrMissingColumns. Rows with unparseable dates are dropped.
func UpsertFeatureTable(ctx context.Context, feature string, tbl *provider.Table, appender storage.FeatureDatasetAppender, checkpoints storage.FeatureCheckpointStore) (int, error) {
	if feature == "" {
		return 0, storage.ErrInvalidInput
	}

	rows, err := normalize.FeatureTable(tbl, feature)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := appender.Append(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("append feature table %s: %w", feature, err)
	}

	if _, _, err := checkpoints.Upsert(ctx, feature, rows); err != nil {
		return 0, fmt.Errorf("upsert feature checkpoints %s: %w", feature, err)
	}

	return n, nil
}
