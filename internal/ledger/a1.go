package ledger

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// ColumnName converts a 1-based column index to its letters: 1 → A, 27 → AA.
// Out of range indices give "".
func ColumnName(index int) string {
	name, err := excelize.ColumnNumberToName(index)
	if err != nil {
		return ""
	}
	return name
}

// CellName renders a position in A1 notation.
func CellName(row, col int) string {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	return ref
}

// sheetRange prefixes an A1 range with a quoted worksheet title.
func sheetRange(title, a1 string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + a1
}
