package reconcile

import (
	"strings"
	"sync"
)

// Record is the extraction result for one ticker. Empty fields mean the
// source had no data; they are never zero values in disguise.
type Record struct {
	Ticker string `json:"ticker"`
	Value  string `json:"value"`
	Date   string `json:"date"`
}

// Found reports whether the source produced any data for the ticker.
func (r Record) Found() bool {
	return r.Value != "" || r.Date != ""
}

// NormalizeTicker trims and upper-cases a fund code.
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// RecordStore maps tickers to their records, keeping insertion order.
// Each ticker is written at most once per run.
type RecordStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]Record
}

// NewRecordStore returns a store holding records in the given order.
func NewRecordStore(records ...Record) *RecordStore {
	s := &RecordStore{records: make(map[string]Record, len(records))}
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add stores r under its normalized ticker. It returns false and keeps the
// existing record when the ticker was already added.
func (s *RecordStore) Add(r Record) bool {
	r.Ticker = NormalizeTicker(r.Ticker)
	if r.Ticker == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]Record)
	}
	if _, ok := s.records[r.Ticker]; ok {
		return false
	}
	s.records[r.Ticker] = r
	s.order = append(s.order, r.Ticker)
	return true
}

// Get returns the record of ticker.
func (s *RecordStore) Get(ticker string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[NormalizeTicker(ticker)]
	return r, ok
}

// Len returns the number of tickers in the store.
func (s *RecordStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Records returns a copy of the records in insertion order.
func (s *RecordStore) Records() []Record {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, s.records[t])
	}
	return out
}

// Tickers returns the stored tickers in insertion order.
func (s *RecordStore) Tickers() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// AnyExtracted reports whether at least one record carries a value.
func (s *RecordStore) AnyExtracted() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Value != "" {
			return true
		}
	}
	return false
}

// Missing returns the tickers of expected that the store has no record for.
func (s *RecordStore) Missing(expected []string) []string {
	var missing []string
	for _, t := range expected {
		if _, ok := s.Get(t); !ok {
			missing = append(missing, NormalizeTicker(t))
		}
	}
	return missing
}
