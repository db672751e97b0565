package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrCellNotFound is returned by FindHeaderCell when no cell matches.
var ErrCellNotFound = errors.New("ledger: cell not found")

// ErrWorksheetNotFound is returned by SelectWorksheet for an unknown tab.
var ErrWorksheetNotFound = errors.New("ledger: worksheet not found")

// ErrNoWorksheet is returned when a grid operation runs before SelectWorksheet.
var ErrNoWorksheet = errors.New("ledger: no worksheet selected")

// Cell is a single grid position. Rows and columns are 1-based.
type Cell struct {
	Row   int
	Col   int
	Value string
}

// Empty reports whether the cell holds no value.
func (c Cell) Empty() bool { return c.Value == "" }

// Range is an inclusive rectangle of cells.
type Range struct {
	FromRow int
	FromCol int
	ToRow   int
	ToCol   int
}

// A1 renders the range in A1 notation, e.g. "H10:I10".
func (r Range) A1() string {
	return CellName(r.FromRow, r.FromCol) + ":" + CellName(r.ToRow, r.ToCol)
}

// Format is the subset of cell formatting the collector applies.
type Format struct {
	Bold bool
}

// Ledger is the row-oriented grid the reconciliation engine writes into.
// Implementations are not safe for concurrent use; a run owns its handle.
type Ledger interface {
	// SelectWorksheet makes name the target of every following call.
	SelectWorksheet(ctx context.Context, name string) error
	// FindHeaderCell returns the first cell at or after fromRow whose value equals name.
	FindHeaderCell(ctx context.Context, name string, fromRow int) (Cell, error)
	// ReadRange returns every cell of the rectangle in row-major order, empty ones included.
	ReadRange(ctx context.Context, r1, c1, r2, c2 int) ([]Cell, error)
	// ReadColumn returns the values of a column from row 1 down to its last non-empty cell.
	ReadColumn(ctx context.Context, index int) ([]string, error)
	// WriteCell stores a value; values starting with "=" are formulas.
	WriteCell(ctx context.Context, row, col int, value string) error
	// InsertBlankRows shifts beforeRow and everything below it down by count rows.
	InsertBlankRows(ctx context.Context, count, beforeRow int) error
	// ApplyFormat sets the format of every cell in rng.
	ApplyFormat(ctx context.Context, rng Range, f Format) error
	// Close releases the backend session, persisting pending changes.
	Close() error
}

// PartialInsertError reports a backend failure on a row insertion that
// nevertheless inserted the rows. Callers treat it as success.
type PartialInsertError struct {
	Count     int
	BeforeRow int
	Err       error
}

func (e *PartialInsertError) Error() string {
	return fmt.Sprintf("inserting %d rows before row %d reported an error although rows were inserted: %v",
		e.Count, e.BeforeRow, e.Err)
}

func (e *PartialInsertError) Unwrap() error { return e.Err }

// IsPartialInsert reports whether err is a soft insertion failure.
func IsPartialInsert(err error) bool {
	var pe *PartialInsertError
	return errors.As(err, &pe)
}

// cellsOf builds the row-major cell list of a rectangle using get for values.
func cellsOf(r1, c1, r2, c2 int, get func(row, col int) string) []Cell {
	if r2 < r1 || c2 < c1 {
		return nil
	}
	cells := make([]Cell, 0, (r2-r1+1)*(c2-c1+1))
	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			cells = append(cells, Cell{Row: row, Col: col, Value: get(row, col)})
		}
	}
	return cells
}

func checkPosition(row, col int) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("ledger: invalid cell position (%d,%d)", row, col)
	}
	return nil
}
