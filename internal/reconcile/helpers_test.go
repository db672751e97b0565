package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"fiidy/internal/ledger"
)

const (
	fiisTab = "FIIs"
	dyTab   = "DY"
	// header row of the DY tab in the fixtures; blocks start right below it
	headerRow = 9
)

var today = time.Date(2024, time.March, 2, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

func noSleep(context.Context, time.Duration) error { return nil }

// newTestLedger builds the tickers tab with master and an empty DY tab
// whose header sits on headerRow.
func newTestLedger(t *testing.T, master ...string) *ledger.MemoryLedger {
	t.Helper()
	m := ledger.NewMemoryLedger(fiisTab, dyTab)
	m.Set(fiisTab, 1, 1, "Ticker")
	for i, ticker := range master {
		m.Set(fiisTab, i+2, 1, ticker)
	}
	headers := map[int]string{1: "FII", 2: "Data Base", 3: "Rendimento", 7: "DY", 8: "Total", 9: "DY Médio"}
	for col, name := range headers {
		m.Set(dyTab, headerRow, col, name)
	}
	return m
}

// fillRow stores a complete ledger row.
func fillRow(m *ledger.MemoryLedger, row int, ticker, value, date, ratio string) {
	m.Set(dyTab, row, 1, ticker)
	m.Set(dyTab, row, 2, date)
	m.Set(dyTab, row, 3, value)
	m.Set(dyTab, row, 7, ratio)
}

func testLayout(daysLimit int) Layout {
	l := DefaultLayout()
	l.DaysLimit = daysLimit
	return l
}

type fakeCollector struct {
	records map[string]Record
	asked   []string
}

func (f *fakeCollector) Collect(_ context.Context, tickers []string) *RecordStore {
	f.asked = append(f.asked, tickers...)
	store := NewRecordStore()
	for _, t := range tickers {
		r := f.records[t]
		r.Ticker = t
		store.Add(r)
	}
	return store
}

type countingRecorder struct {
	mu       sync.Mutex
	written  int
	deferred int
	skipped  int
	opened   int
	empty    int
	outcomes []string
}

func (c *countingRecorder) RowWritten(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written++
}

func (c *countingRecorder) RowDeferred(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred++
}

func (c *countingRecorder) RowSkipped(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped++
}

func (c *countingRecorder) BlockOpened(context.Context, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened++
}

func (c *countingRecorder) ExtractionEmpty(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.empty++
}

func (c *countingRecorder) RunFinished(_ context.Context, _ time.Duration, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}
