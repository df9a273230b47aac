// Package memory provides in-memory storage implementations used by tests
// and the demo modes of the cmd binaries.
package memory

import (
	"context"
	"sync"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/storage"
)

// PriceCheckpointStore is an in-memory implementation of
// storage.PriceCheckpointStore.
type PriceCheckpointStore struct {
	mu sync.RWMutex
	// last[ticker] holds the highest checkpointed date per ticker; rows
	// accumulates one snapshot per (ticker, date), mirroring the durable
	// table layout.
	last map[string]domain.Date
	rows map[string]map[domain.Date]*domain.PriceCheckpoint
}

// NewPriceCheckpointStore creates a new in-memory price checkpoint store.
func NewPriceCheckpointStore() *PriceCheckpointStore {
	return &PriceCheckpointStore{
		last: make(map[string]domain.Date),
		rows: make(map[string]map[domain.Date]*domain.PriceCheckpoint),
	}
}

var _ storage.PriceCheckpointStore = (*PriceCheckpointStore)(nil)

// LastDate returns the checkpoint date for ticker, or absent.
func (s *PriceCheckpointStore) LastDate(_ context.Context, ticker string) (domain.Date, bool, error) {
	if ticker == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.last[ticker]
	return d, ok, nil
}

// Upsert overwrites the checkpoint for ticker with the maximum row date and
// that row's value snapshot.
func (s *PriceCheckpointStore) Upsert(_ context.Context, ticker string, rows []*domain.PriceRow) (domain.Date, bool, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rows[ticker] == nil {
		s.rows[ticker] = make(map[domain.Date]*domain.PriceCheckpoint)
	}
	s.rows[ticker][last.Date] = &domain.PriceCheckpoint{
		Ticker:   ticker,
		Date:     last.Date,
		Open:     last.Open,
		High:     last.High,
		Low:      last.Low,
		Close:    last.Close,
		AdjClose: last.AdjClose,
		Volume:   last.Volume,
	}
	if cur, ok := s.last[ticker]; !ok || last.Date.After(cur) {
		s.last[ticker] = last.Date
	}

	return last.Date, true, nil
}

// Snapshot returns the stored checkpoint row for (ticker, date), for tests.
func (s *PriceCheckpointStore) Snapshot(ticker string, date domain.Date) (*domain.PriceCheckpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.rows[ticker][date]
	if !ok {
		return nil, false
	}
	cpCopy := *cp
	return &cpCopy, true
}

// MacroCheckpointStore is an in-memory implementation of
// storage.MacroCheckpointStore.
type MacroCheckpointStore struct {
	mu   sync.RWMutex
	last map[string]domain.Date
	rows map[string]map[domain.Date]*domain.MacroCheckpoint
}

// NewMacroCheckpointStore creates a new in-memory macro checkpoint store.
func NewMacroCheckpointStore() *MacroCheckpointStore {
	return &MacroCheckpointStore{
		last: make(map[string]domain.Date),
		rows: make(map[string]map[domain.Date]*domain.MacroCheckpoint),
	}
}

var _ storage.MacroCheckpointStore = (*MacroCheckpointStore)(nil)

// LastDate returns the checkpoint date for zone, or absent.
func (s *MacroCheckpointStore) LastDate(_ context.Context, zone string) (domain.Date, bool, error) {
	if zone == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.last[zone]
	return d, ok, nil
}

// Upsert overwrites the checkpoint for zone with the maximum row date and
// that row's value snapshot.
func (s *MacroCheckpointStore) Upsert(_ context.Context, zone string, rows []*domain.MacroRow) (domain.Date, bool, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rows[zone] == nil {
		s.rows[zone] = make(map[domain.Date]*domain.MacroCheckpoint)
	}
	s.rows[zone][last.Date] = &domain.MacroCheckpoint{
		Zone:   zone,
		Date:   last.Date,
		CPI:    last.CPI,
		GDP:    last.GDP,
		Policy: last.Policy,
		Unemp:  last.Unemp,
	}
	if cur, ok := s.last[zone]; !ok || last.Date.After(cur) {
		s.last[zone] = last.Date
	}

	return last.Date, true, nil
}

// FeatureCheckpointStore is an in-memory implementation of
// storage.FeatureCheckpointStore.
type FeatureCheckpointStore struct {
	mu sync.RWMutex
	// last[feature][ticker] -> latest date
	last map[string]map[string]domain.Date
}

// NewFeatureCheckpointStore creates a new in-memory feature checkpoint store.
func NewFeatureCheckpointStore() *FeatureCheckpointStore {
	return &FeatureCheckpointStore{
		last: make(map[string]map[string]domain.Date),
	}
}

var _ storage.FeatureCheckpointStore = (*FeatureCheckpointStore)(nil)

// LastDate returns the checkpoint date for (feature, ticker), or absent.
func (s *FeatureCheckpointStore) LastDate(_ context.Context, feature, ticker string) (domain.Date, bool, error) {
	if feature == "" || ticker == "" {
		return domain.Date{}, false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.last[feature][ticker]
	return d, ok, nil
}

// AllLastDates returns ticker -> latest date for one feature family.
func (s *FeatureCheckpointStore) AllLastDates(_ context.Context, feature string) (map[string]domain.Date, error) {
	if feature == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Date, len(s.last[feature]))
	for ticker, d := range s.last[feature] {
		out[ticker] = d
	}
	return out, nil
}

// Upsert overwrites each ticker's checkpoint with that ticker's maximum row
// date and returns the maximum date across all rows.
func (s *FeatureCheckpointStore) Upsert(_ context.Context, feature string, rows []*domain.FeatureRow) (domain.Date, bool, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last[feature] == nil {
		s.last[feature] = make(map[string]domain.Date)
	}
	for ticker, d := range perTicker {
		s.last[feature][ticker] = d
	}

	return max, true, nil
}
