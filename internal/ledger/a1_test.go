package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnName(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, ""},
		{1, "A"},
		{3, "C"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{703, "AAA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnName(tt.index), "index %d", tt.index)
	}
}

func TestCellName(t *testing.T) {
	assert.Equal(t, "H10", CellName(10, 8))
	assert.Equal(t, "AB7", CellName(7, 28))
	assert.Equal(t, "", CellName(0, 1))
	assert.Equal(t, "", CellName(1, 0))
}

func TestRangeA1(t *testing.T) {
	assert.Equal(t, "H10:I10", Range{FromRow: 10, FromCol: 8, ToRow: 10, ToCol: 9}.A1())
	assert.Equal(t, "'DY'!C1:C5", sheetRange("DY", "C1:C5"))
	assert.Equal(t, "'Bob''s'!A1", sheetRange("Bob's", "A1"))
}
