package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

func ptr[T any](v T) *T {
	return &v
}

func priceRow(ticker string, d domain.Date, close float64) *domain.PriceRow {
	return &domain.PriceRow{
		Ticker: ticker,
		Date:   d,
		Year:   d.Year,
		Close:  ptr(close),
		Volume: 100,
	}
}

func TestPriceCheckpointAbsentBeforeFirstUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewPriceCheckpointStore()

	d, ok, err := s.LastDate(ctx, "SPY")
	if err != nil {
		t.Fatalf("LastDate failed: %v", err)
	}
	if ok {
		t.Error("expected absent checkpoint")
	}
	if !d.IsZero() {
		t.Errorf("absent date should be zero, got %v", d)
	}
}

func TestPriceCheckpointTracksMaxDate(t *testing.T) {
	ctx := context.Background()
	s := NewPriceCheckpointStore()

	jan2 := domain.NewDate(2024, time.January, 2)
	jan5 := domain.NewDate(2024, time.January, 5)

	// Batch in arbitrary order; checkpoint takes the max.
	got, ok, err := s.Upsert(ctx, "SPY", []*domain.PriceRow{
		priceRow("SPY", jan5, 101),
		priceRow("SPY", jan2, 100),
	})
	if err != nil || !ok {
		t.Fatalf("Upsert failed: %v ok=%v", err, ok)
	}
	if got != jan5 {
		t.Errorf("checkpoint = %v, want %v", got, jan5)
	}

	// Re-upserting an older batch must not move the checkpoint back.
	if _, _, err := s.Upsert(ctx, "SPY", []*domain.PriceRow{priceRow("SPY", jan2, 99)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	d, ok, _ := s.LastDate(ctx, "SPY")
	if !ok || d != jan5 {
		t.Errorf("checkpoint regressed to %v", d)
	}
}

func TestPriceCheckpointSnapshotValues(t *testing.T) {
	ctx := context.Background()
	s := NewPriceCheckpointStore()

	jan5 := domain.NewDate(2024, time.January, 5)
	if _, _, err := s.Upsert(ctx, "SPY", []*domain.PriceRow{priceRow("SPY", jan5, 123.45)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	cp, ok := s.Snapshot("SPY", jan5)
	if !ok {
		t.Fatal("snapshot missing")
	}
	if cp.Close == nil || *cp.Close != 123.45 {
		t.Errorf("snapshot close = %v", cp.Close)
	}
}

func TestPriceCheckpointEmptyRowsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewPriceCheckpointStore()

	d, ok, err := s.Upsert(ctx, "SPY", nil)
	if err != nil {
		t.Fatalf("empty upsert should not error: %v", err)
	}
	if ok || !d.IsZero() {
		t.Errorf("empty upsert advanced checkpoint: %v %v", d, ok)
	}
}

func TestPriceCheckpointRejectsEmptyTicker(t *testing.T) {
	ctx := context.Background()
	s := NewPriceCheckpointStore()

	if _, _, err := s.LastDate(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := s.Upsert(ctx, "", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMacroCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := NewMacroCheckpointStore()

	feb := domain.NewDate(2024, time.February, 1)
	got, ok, err := s.Upsert(ctx, "US", []*domain.MacroRow{
		{Zone: "US", Date: domain.NewDate(2024, time.January, 1), CPI: ptr(119.0)},
		{Zone: "US", Date: feb, CPI: ptr(120.0)},
	})
	if err != nil || !ok {
		t.Fatalf("Upsert failed: %v", err)
	}
	if got != feb {
		t.Errorf("checkpoint = %v, want %v", got, feb)
	}

	d, ok, _ := s.LastDate(ctx, "US")
	if !ok || d != feb {
		t.Errorf("LastDate = %v %v", d, ok)
	}
	if _, ok, _ := s.LastDate(ctx, "EU"); ok {
		t.Error("other zone should be absent")
	}
}

func TestFeatureCheckpointPerTicker(t *testing.T) {
	ctx := context.Background()
	s := NewFeatureCheckpointStore()

	jan3 := domain.NewDate(2024, time.January, 3)
	jan7 := domain.NewDate(2024, time.January, 7)

	max, ok, err := s.Upsert(ctx, "news", []*domain.FeatureRow{
		{Feature: "news", Ticker: "SPY", Date: jan3},
		{Feature: "news", Ticker: "SPY", Date: jan7},
		{Feature: "news", Ticker: "QQQ", Date: jan3},
	})
	if err != nil || !ok {
		t.Fatalf("Upsert failed: %v", err)
	}
	if max != jan7 {
		t.Errorf("max = %v, want %v", max, jan7)
	}

	d, ok, _ := s.LastDate(ctx, "news", "SPY")
	if !ok || d != jan7 {
		t.Errorf("SPY = %v %v", d, ok)
	}
	d, ok, _ = s.LastDate(ctx, "news", "QQQ")
	if !ok || d != jan3 {
		t.Errorf("QQQ = %v %v", d, ok)
	}
	if _, ok, _ := s.LastDate(ctx, "other", "SPY"); ok {
		t.Error("other feature family should be absent")
	}

	all, err := s.AllLastDates(ctx, "news")
	if err != nil {
		t.Fatalf("AllLastDates failed: %v", err)
	}
	if len(all) != 2 || all["SPY"] != jan7 {
		t.Errorf("AllLastDates = %v", all)
	}
}

func TestFeatureCheckpointOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewFeatureCheckpointStore()

	jan3 := domain.NewDate(2024, time.January, 3)
	jan7 := domain.NewDate(2024, time.January, 7)

	mustUpsertFeature(t, s, "news", jan7)
	// The feature checkpoint is a plain overwrite; the orchestrator's
	// window resolution is what keeps it monotonic in practice.
	mustUpsertFeature(t, s, "news", jan3)

	d, ok, _ := s.LastDate(ctx, "news", "SPY")
	if !ok || d != jan3 {
		t.Errorf("got %v, want overwrite to %v", d, jan3)
	}
}

func mustUpsertFeature(t *testing.T, s *FeatureCheckpointStore, feature string, d domain.Date) {
	t.Helper()
	_, _, err := s.Upsert(context.Background(), feature, []*domain.FeatureRow{
		{Feature: feature, Ticker: "SPY", Date: d},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
}
