package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiidy/internal/ledger"
)

func TestLocateBlock(t *testing.T) {
	m := newTestLedger(t, "ABCD11", "EFGH11", "IJKL11")
	fillRow(m, 10, "abcd11", "1,10", "01/02/2024", "1")
	fillRow(m, 12, "IJKL11", "0,30", "01/02/2024", "1")
	fillRow(m, 13, "XXXX11", "9,99", "01/01/2024", "1")

	block := locateTestBlock(t, m, testLayout(30), 3)

	assert.Equal(t, 10, block.StartingPoint)
	assert.Equal(t, 13, block.NextRowToBeFilled)
	assert.Equal(t, 3, block.Size())
	assert.Equal(t, 3, block.ValueCol)
	assert.Equal(t, 1, block.TickerCol)
	assert.Equal(t, []string{"ABCD11", "", "IJKL11"}, block.TickerValues)
	require.Len(t, block.ValueCells, 3)
	assert.Equal(t, ledger.Cell{Row: 11, Col: 3}, block.ValueCells[1])
	assert.Equal(t, 2, block.Filled())
	assert.True(t, block.Registered("abcd11"))
	assert.False(t, block.Registered("XXXX11"))
}

func TestLocateBlockUsesTickerHeaderColumn(t *testing.T) {
	m := ledger.NewMemoryLedger(dyTab)
	m.Set(dyTab, 2, 2, "Fundo")
	m.Set(dyTab, 2, 4, "Rendimento")
	m.Set(dyTab, 3, 2, "ABCD11")
	layout := testLayout(30)
	layout.TickerHeader = "Fundo"
	layout.HeaderRow = 2

	block := locateTestBlock(t, m, layout, 2)
	assert.Equal(t, 3, block.StartingPoint)
	assert.Equal(t, 4, block.ValueCol)
	assert.Equal(t, 2, block.TickerCol)
	assert.Equal(t, []string{"ABCD11", ""}, block.TickerValues)

	layout.TickerHeader = "Missing"
	block = locateTestBlock(t, m, layout, 2)
	assert.Equal(t, layout.TickerCol, block.TickerCol)
}

func TestLocateBlockMissingValueHeader(t *testing.T) {
	m := ledger.NewMemoryLedger(dyTab)
	require.NoError(t, m.SelectWorksheet(context.Background(), dyTab))

	_, err := LocateBlock(context.Background(), m, testLayout(30), 2)
	var locErr *LocatorError
	require.True(t, errors.As(err, &locErr))
	assert.Equal(t, "Rendimento", locErr.Column)
	assert.Equal(t, 1, locErr.FromRow)
	assert.True(t, IsFatal(err))
}

func TestLocateBlockBackendError(t *testing.T) {
	m := ledger.NewMemoryLedger(dyTab)

	_, err := LocateBlock(context.Background(), m, testLayout(30), 2)
	assert.ErrorIs(t, err, ledger.ErrNoWorksheet)
	assert.False(t, IsFatal(err))
}

func TestInferBlockSize(t *testing.T) {
	ctx := context.Background()

	t.Run("previous summary row bounds the block", func(t *testing.T) {
		m := newTestLedger(t)
		m.Set(dyTab, 10, 8, "=SUM(C13:C15)")
		m.Set(dyTab, 13, 8, "=SUM(C16:C18)")
		require.NoError(t, m.SelectWorksheet(ctx, dyTab))

		size, err := InferBlockSize(ctx, m, testLayout(30), 7)
		require.NoError(t, err)
		assert.Equal(t, 3, size)
	})

	t.Run("first block falls back", func(t *testing.T) {
		m := newTestLedger(t)
		require.NoError(t, m.SelectWorksheet(ctx, dyTab))

		size, err := InferBlockSize(ctx, m, testLayout(30), 7)
		require.NoError(t, err)
		assert.Equal(t, 7, size)
	})
}
