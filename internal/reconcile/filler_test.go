package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiidy/internal/ledger"
)

func locateTestBlock(t *testing.T, m *ledger.MemoryLedger, layout Layout, size int) Block {
	t.Helper()
	require.NoError(t, m.SelectWorksheet(context.Background(), dyTab))
	block, err := LocateBlock(context.Background(), m, layout, size)
	require.NoError(t, err)
	return block
}

func fillOpts(limited bool) FillOptions {
	return FillOptions{FreshnessLimited: limited, Now: fixedClock, Sleep: noSleep}
}

func TestFillRowsFreshnessLaw(t *testing.T) {
	tests := []struct {
		date      string
		limit     int
		wantWrite bool
	}{
		{"02/03/2024", 0, true},
		{"01/03/2024", 0, false},
		{"01/03/2024", 1, true},
		{"01/02/2024", 30, true},
		{"31/01/2024", 30, false},
		{"01/01/2024", 60, false},
		{"01/01/2024", 61, true},
		{"10/03/2024", 0, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s limit %d", tt.date, tt.limit), func(t *testing.T) {
			m := newTestLedger(t, "ABCD11")
			layout := testLayout(tt.limit)
			block := locateTestBlock(t, m, layout, 1)
			store := NewRecordStore(Record{Ticker: "ABCD11", Value: "1,00", Date: tt.date})

			report, err := FillRows(context.Background(), m, layout, block, store, fillOpts(true))
			require.NoError(t, err)

			if tt.wantWrite {
				assert.Equal(t, "1,00", m.Value(dyTab, 10, 3))
				assert.Equal(t, 1, report.Written)
			} else {
				assert.Empty(t, m.Value(dyTab, 10, 3))
				assert.Empty(t, m.Value(dyTab, 10, 1))
				assert.Equal(t, 1, report.Deferred)
				assert.Greater(t, report.Rows[0].DaysElapsed, tt.limit)
			}
		})
	}
}

func TestFillRowsCarriesOverWhenOnlyDeferredRowsRemain(t *testing.T) {
	m := newTestLedger(t, "ABCD11", "EFGH11")
	layout := testLayout(30)
	block := locateTestBlock(t, m, layout, 2)
	store := NewRecordStore(
		Record{Ticker: "ABCD11", Value: "1,23", Date: "01/01/2024"},
		Record{Ticker: "EFGH11", Value: "0,85", Date: "01/03/2024"},
		Record{Ticker: "IJKL11", Value: "0,50", Date: "01/03/2024"},
		Record{Ticker: "MNOP11", Value: "0,40", Date: "01/03/2024"},
	)

	report, err := FillRows(context.Background(), m, layout, block, store, fillOpts(true))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, []string{"IJKL11", "MNOP11"}, report.CarriedOver)
	assert.Empty(t, m.Value(dyTab, 10, 1))
	assert.Equal(t, "EFGH11", m.Value(dyTab, 11, 1))
	assert.Empty(t, m.Value(dyTab, 12, 1))
}

func TestFillRowsExhaustedBlock(t *testing.T) {
	m := newTestLedger(t, "ABCD11", "EFGH11")
	fillRow(m, 10, "ABCD11", "1,10", "01/02/2024", "1")
	fillRow(m, 11, "EFGH11", "0,80", "01/02/2024", "1")
	layout := testLayout(30)
	block := locateTestBlock(t, m, layout, 2)
	store := NewRecordStore(
		Record{Ticker: "ABCD11", Value: "1,23", Date: "01/03/2024"},
		Record{Ticker: "IJKL11", Value: "0,50", Date: "01/03/2024"},
	)

	report, err := FillRows(context.Background(), m, layout, block, store, fillOpts(true))
	var exhausted *BlockExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "IJKL11", exhausted.Ticker)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, m.Writes())
}

func TestFillRowsFillsGapsInOrder(t *testing.T) {
	m := newTestLedger(t, "ABCD11", "EFGH11", "IJKL11")
	fillRow(m, 11, "EFGH11", "0,80", "01/03/2024", "1")
	layout := testLayout(30)
	block := locateTestBlock(t, m, layout, 3)
	store := NewRecordStore(
		Record{Ticker: "IJKL11", Value: "0,50", Date: "01/03/2024"},
		Record{Ticker: "EFGH11", Value: "0,85", Date: "01/03/2024"},
		Record{Ticker: "ABCD11", Value: "1,23", Date: "01/03/2024"},
	)

	report, err := FillRows(context.Background(), m, layout, block, store, fillOpts(true))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, "IJKL11", m.Value(dyTab, 10, 1))
	assert.Equal(t, "EFGH11", m.Value(dyTab, 11, 1))
	assert.Equal(t, "0,80", m.Value(dyTab, 11, 3))
	assert.Equal(t, "ABCD11", m.Value(dyTab, 12, 1))
}

func TestFillRowsDefersUnparseableDate(t *testing.T) {
	m := newTestLedger(t, "ABCD11", "EFGH11")
	layout := testLayout(30)
	block := locateTestBlock(t, m, layout, 2)
	store := NewRecordStore(
		Record{Ticker: "ABCD11", Value: "1,23", Date: "2024-03-01"},
		Record{Ticker: "EFGH11", Value: "0,85", Date: "01/03/2024"},
	)

	report, err := FillRows(context.Background(), m, layout, block, store, fillOpts(true))
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, OutcomeDeferred, report.Rows[0].Outcome)
	assert.Equal(t, "unparseable date", report.Rows[0].Reason)
	assert.Equal(t, "EFGH11", m.Value(dyTab, 11, 1))
}

type failingLedger struct {
	*ledger.MemoryLedger
	err error
}

func (f failingLedger) WriteCell(context.Context, int, int, string) error { return f.err }

func TestFillRowsWriteFailureAbortsRun(t *testing.T) {
	m := newTestLedger(t, "ABCD11")
	layout := testLayout(30)
	block := locateTestBlock(t, m, layout, 1)
	boom := errors.New("quota exceeded")

	_, err := FillRows(context.Background(), failingLedger{m, boom}, layout, block,
		NewRecordStore(Record{Ticker: "ABCD11", Value: "1,23", Date: "01/03/2024"}), fillOpts(true))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ABCD11")
}

func TestThrottle(t *testing.T) {
	assert.NoError(t, Throttle(context.Background(), 0))
	assert.NoError(t, Throttle(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Throttle(ctx, 0), context.Canceled)
	assert.ErrorIs(t, Throttle(ctx, 1<<40), context.Canceled)
}
