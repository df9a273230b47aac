package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

// PriceDataset is an in-memory implementation of storage.PriceDatasetAppender.
// Rows are keyed by (ticker, date); re-appending a key overwrites.
type PriceDataset struct {
	mu   sync.RWMutex
	data map[string]map[domain.Date]*domain.PriceRow
}

// NewPriceDataset creates a new in-memory price dataset.
func NewPriceDataset() *PriceDataset {
	return &PriceDataset{data: make(map[string]map[domain.Date]*domain.PriceRow)}
}

var _ storage.PriceDatasetAppender = (*PriceDataset)(nil)

// Append writes rows, overwriting existing (ticker, date) keys.
func (s *PriceDataset) Append(_ context.Context, rows []*domain.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil || r.Ticker == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		if s.data[r.Ticker] == nil {
			s.data[r.Ticker] = make(map[domain.Date]*domain.PriceRow)
		}
		rowCopy := *r
		s.data[r.Ticker][r.Date] = &rowCopy
	}

	return len(rows), nil
}

// Rows returns all stored rows for ticker, ordered by date ascending.
func (s *PriceDataset) Rows(ticker string) []*domain.PriceRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PriceRow
	for _, r := range s.data[ticker] {
		rowCopy := *r
		out = append(out, &rowCopy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Count returns the total number of stored rows across all tickers.
func (s *PriceDataset) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rows := range s.data {
		n += len(rows)
	}
	return n
}

// MacroDataset is an in-memory implementation of storage.MacroDatasetAppender.
type MacroDataset struct {
	mu   sync.RWMutex
	data map[string]map[domain.Date]*domain.MacroRow
}

// NewMacroDataset creates a new in-memory macro dataset.
func NewMacroDataset() *MacroDataset {
	return &MacroDataset{data: make(map[string]map[domain.Date]*domain.MacroRow)}
}

var _ storage.MacroDatasetAppender = (*MacroDataset)(nil)

// Append writes rows, overwriting existing (zone, date) keys.
func (s *MacroDataset) Append(_ context.Context, rows []*domain.MacroRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil || r.Zone == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		if s.data[r.Zone] == nil {
			s.data[r.Zone] = make(map[domain.Date]*domain.MacroRow)
		}
		rowCopy := *r
		s.data[r.Zone][r.Date] = &rowCopy
	}

	return len(rows), nil
}

// Rows returns all stored rows for zone, ordered by date ascending.
func (s *MacroDataset) Rows(zone string) []*domain.MacroRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.MacroRow
	for _, r := range s.data[zone] {
		rowCopy := *r
		out = append(out, &rowCopy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Count returns the total number of stored rows across all zones.
func (s *MacroDataset) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rows := range s.data {
		n += len(rows)
	}
	return n
}

// FeatureDataset is an in-memory implementation of
// storage.FeatureDatasetAppender.
type FeatureDataset struct {
	mu   sync.RWMutex
	data map[featureKey]*domain.FeatureRow
}

type featureKey struct {
	feature string
	ticker  string
	date    domain.Date
}

// NewFeatureDataset creates a new in-memory feature dataset.
func NewFeatureDataset() *FeatureDataset {
	return &FeatureDataset{data: make(map[featureKey]*domain.FeatureRow)}
}

var _ storage.FeatureDatasetAppender = (*FeatureDataset)(nil)

// Append writes rows, overwriting existing (feature, ticker, date) keys.
func (s *FeatureDataset) Append(_ context.Context, rows []*domain.FeatureRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil || r.Feature == "" || r.Ticker == "" || r.Date.IsZero() {
			return 0, storage.ErrInvalidInput
		}
		rowCopy := *r
		s.data[featureKey{r.Feature, r.Ticker, r.Date}] = &rowCopy
	}

	return len(rows), nil
}

// Count returns the total number of stored rows.
func (s *FeatureDataset) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
