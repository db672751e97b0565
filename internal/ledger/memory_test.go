package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerRequiresWorksheet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLedger("DY")

	_, err := m.ReadColumn(ctx, 1)
	assert.ErrorIs(t, err, ErrNoWorksheet)

	err = m.SelectWorksheet(ctx, "Other")
	assert.ErrorIs(t, err, ErrWorksheetNotFound)
}

func TestMemoryLedgerFindHeaderCell(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLedger("DY")
	m.Set("DY", 1, 3, "Rendimento")
	m.Set("DY", 4, 2, "Rendimento")
	m.Set("DY", 4, 1, "FII")
	require.NoError(t, m.SelectWorksheet(ctx, "DY"))

	cell, err := m.FindHeaderCell(ctx, "Rendimento", 1)
	require.NoError(t, err)
	assert.Equal(t, Cell{Row: 1, Col: 3, Value: "Rendimento"}, cell)

	cell, err = m.FindHeaderCell(ctx, "Rendimento", 2)
	require.NoError(t, err)
	assert.Equal(t, 4, cell.Row)
	assert.Equal(t, 2, cell.Col)

	_, err = m.FindHeaderCell(ctx, "Missing", 1)
	assert.True(t, errors.Is(err, ErrCellNotFound))
}

func TestMemoryLedgerReadRangeIncludesEmptyCells(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLedger("DY")
	m.Set("DY", 2, 3, "1,23")
	require.NoError(t, m.SelectWorksheet(ctx, "DY"))

	cells, err := m.ReadRange(ctx, 1, 3, 3, 3)
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.True(t, cells[0].Empty())
	assert.Equal(t, "1,23", cells[1].Value)
	assert.Equal(t, 2, cells[1].Row)
	assert.True(t, cells[2].Empty())
}

func TestMemoryLedgerReadColumn(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLedger("FIIs")
	m.Set("FIIs", 1, 1, "Ticker")
	m.Set("FIIs", 2, 1, "ABCD11")
	m.Set("FIIs", 4, 1, "EFGH11")
	require.NoError(t, m.SelectWorksheet(ctx, "FIIs"))

	values, err := m.ReadColumn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ticker", "ABCD11", "", "EFGH11"}, values)

	values, err = m.ReadColumn(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestMemoryLedgerInsertBlankRowsShiftsContentAndFormat(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLedger("DY")
	m.Set("DY", 1, 3, "Rendimento")
	m.Set("DY", 2, 3, "1,00")
	m.Set("DY", 3, 3, "2,00")
	require.NoError(t, m.SelectWorksheet(ctx, "DY"))
	require.NoError(t, m.ApplyFormat(ctx, Range{FromRow: 2, FromCol: 8, ToRow: 2, ToCol: 9}, Format{Bold: true}))

	require.NoError(t, m.InsertBlankRows(ctx, 2, 2))

	assert.Equal(t, "Rendimento", m.Value("DY", 1, 3))
	assert.Equal(t, "", m.Value("DY", 2, 3))
	assert.Equal(t, "", m.Value("DY", 3, 3))
	assert.Equal(t, "1,00", m.Value("DY", 4, 3))
	assert.Equal(t, "2,00", m.Value("DY", 5, 3))
	assert.False(t, m.Bold("DY", 2, 8))
	assert.True(t, m.Bold("DY", 4, 8))
	assert.True(t, m.Bold("DY", 4, 9))
}

func TestMemoryLedgerInsertFailureModes(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend hiccup")

	t.Run("hard failure leaves grid untouched", func(t *testing.T) {
		m := NewMemoryLedger("DY")
		m.Set("DY", 2, 1, "x")
		m.InsertErr = boom
		require.NoError(t, m.SelectWorksheet(ctx, "DY"))

		err := m.InsertBlankRows(ctx, 1, 2)
		assert.ErrorIs(t, err, boom)
		assert.False(t, IsPartialInsert(err))
		assert.Equal(t, "x", m.Value("DY", 2, 1))
	})

	t.Run("partial failure inserts rows", func(t *testing.T) {
		m := NewMemoryLedger("DY")
		m.Set("DY", 2, 1, "x")
		m.InsertErr = boom
		m.InsertAnyway = true
		require.NoError(t, m.SelectWorksheet(ctx, "DY"))

		err := m.InsertBlankRows(ctx, 1, 2)
		assert.True(t, IsPartialInsert(err))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "x", m.Value("DY", 3, 1))
	})
}

func TestMemoryLedgerWriteCell(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLedger("DY")
	require.NoError(t, m.SelectWorksheet(ctx, "DY"))

	require.NoError(t, m.WriteCell(ctx, 10, 1, "ABCD11"))
	assert.Error(t, m.WriteCell(ctx, 0, 1, "bad"))
	assert.Equal(t, "ABCD11", m.Value("DY", 10, 1))
	assert.Equal(t, 1, m.Writes())

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}
