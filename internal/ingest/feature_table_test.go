package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/loic-mmt/BloomDash/internal/normalize"
	"github.com/loic-mmt/BloomDash/internal/provider"
	"github.com/loic-mmt/BloomDash/internal/storage"
	"github.com/loic-mmt/BloomDash/internal/storage/memory"
)

func featureTable(columns []string, rows ...[]string) *provider.Table {
	tbl := &provider.Table{Rows: rows}
	for _, name := range columns {
		tbl.Columns = append(tbl.Columns, provider.Column{Name: name})
	}
	return tbl
}

func TestUpsertFeatureTable(t *testing.T) {
	appender := memory.NewFeatureDataset()
	checkpoints := memory.NewFeatureCheckpointStore()

	tbl := featureTable([]string{"ticker", "date"},
		[]string{"SPY", "2024-01-05"},
		[]string{"SPY", "2024-01-02"},
		[]string{"QQQ", "2024-01-03"},
	)

	n, err := UpsertFeatureTable(context.Background(), "news_sentiment", tbl, appender, checkpoints)
	if err != nil {
		t.Fatalf("UpsertFeatureTable failed: %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d rows, want 3", n)
	}

	// Each ticker's checkpoint lands on its own latest date.
	all, err := checkpoints.AllLastDates(context.Background(), "news_sentiment")
	if err != nil {
		t.Fatalf("AllLastDates failed: %v", err)
	}
	if got := all["SPY"].String(); got != "2024-01-05" {
		t.Errorf("SPY checkpoint = %s", got)
	}
	if got := all["QQQ"].String(); got != "2024-01-03" {
		t.Errorf("QQQ checkpoint = %s", got)
	}
}

func TestUpsertFeatureTableMissingColumns(t *testing.T) {
	appender := memory.NewFeatureDataset()
	checkpoints := memory.NewFeatureCheckpointStore()

	tbl := featureTable([]string{"ticker", "score"}, []string{"SPY", "0.4"})

	_, err := UpsertFeatureTable(context.Background(), "news_sentiment", tbl, appender, checkpoints)
	if !errors.Is(err, normalize.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}

	// Nothing is written on a rejected table.
	all, err := checkpoints.AllLastDates(context.Background(), "news_sentiment")
	if err != nil {
		t.Fatalf("AllLastDates failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("checkpoints written despite rejection: %v", all)
	}
}

func TestUpsertFeatureTableEmpty(t *testing.T) {
	appender := memory.NewFeatureDataset()
	checkpoints := memory.NewFeatureCheckpointStore()

	n, err := UpsertFeatureTable(context.Background(), "news_sentiment",
		featureTable([]string{"ticker", "date"}), appender, checkpoints)
	if err != nil {
		t.Fatalf("UpsertFeatureTable failed: %v", err)
	}
	if n != 0 {
		t.Errorf("wrote %d rows for empty table", n)
	}

	if _, err := UpsertFeatureTable(context.Background(), "", nil, appender, checkpoints); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty feature name should be rejected, got %v", err)
	}
}
