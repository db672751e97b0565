package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryLedger is a map-backed ledger used by tests and dry runs.
// It keeps every worksheet in memory and records formatting.
type MemoryLedger struct {
	mu     sync.Mutex
	sheets map[string]*grid
	active string

	// InsertErr, when set, is returned by InsertBlankRows. If InsertAnyway is
	// true the rows are still inserted and the error is wrapped as a
	// PartialInsertError, mimicking a backend that fails after committing.
	InsertErr    error
	InsertAnyway bool

	writes int
	closed bool
}

type grid struct {
	cells map[int]map[int]string
	bold  map[[2]int]bool
}

func newGrid() *grid {
	return &grid{cells: map[int]map[int]string{}, bold: map[[2]int]bool{}}
}

// NewMemoryLedger creates an empty in-memory ledger with the named worksheets.
func NewMemoryLedger(worksheets ...string) *MemoryLedger {
	m := &MemoryLedger{sheets: map[string]*grid{}}
	for _, name := range worksheets {
		m.sheets[name] = newGrid()
	}
	return m
}

// SelectWorksheet implements Ledger.
func (m *MemoryLedger) SelectWorksheet(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[name]; !ok {
		return fmt.Errorf("%w: %q", ErrWorksheetNotFound, name)
	}
	m.active = name
	return nil
}

func (m *MemoryLedger) current() (*grid, error) {
	g, ok := m.sheets[m.active]
	if !ok {
		return nil, ErrNoWorksheet
	}
	return g, nil
}

// FindHeaderCell implements Ledger.
func (m *MemoryLedger) FindHeaderCell(_ context.Context, name string, fromRow int) (Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.current()
	if err != nil {
		return Cell{}, err
	}
	rows := make([]int, 0, len(g.cells))
	for r := range g.cells {
		if r >= fromRow {
			rows = append(rows, r)
		}
	}
	sort.Ints(rows)
	for _, r := range rows {
		cols := make([]int, 0, len(g.cells[r]))
		for c := range g.cells[r] {
			cols = append(cols, c)
		}
		sort.Ints(cols)
		for _, c := range cols {
			if strings.TrimSpace(g.cells[r][c]) == name {
				return Cell{Row: r, Col: c, Value: g.cells[r][c]}, nil
			}
		}
	}
	return Cell{}, fmt.Errorf("%w: %q from row %d", ErrCellNotFound, name, fromRow)
}

// ReadRange implements Ledger.
func (m *MemoryLedger) ReadRange(_ context.Context, r1, c1, r2, c2 int) ([]Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.current()
	if err != nil {
		return nil, err
	}
	return cellsOf(r1, c1, r2, c2, g.get), nil
}

// ReadColumn implements Ledger.
func (m *MemoryLedger) ReadColumn(_ context.Context, index int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.current()
	if err != nil {
		return nil, err
	}
	last := 0
	for r, cols := range g.cells {
		if cols[index] != "" && r > last {
			last = r
		}
	}
	values := make([]string, last)
	for r := 1; r <= last; r++ {
		values[r-1] = g.get(r, index)
	}
	return values, nil
}

// WriteCell implements Ledger.
func (m *MemoryLedger) WriteCell(_ context.Context, row, col int, value string) error {
	if err := checkPosition(row, col); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.current()
	if err != nil {
		return err
	}
	g.set(row, col, value)
	m.writes++
	return nil
}

// InsertBlankRows implements Ledger.
func (m *MemoryLedger) InsertBlankRows(_ context.Context, count, beforeRow int) error {
	if count <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.current()
	if err != nil {
		return err
	}
	if m.InsertErr != nil && !m.InsertAnyway {
		return m.InsertErr
	}

	shifted := make(map[int]map[int]string, len(g.cells))
	for r, cols := range g.cells {
		if r >= beforeRow {
			shifted[r+count] = cols
		} else {
			shifted[r] = cols
		}
	}
	g.cells = shifted

	bold := make(map[[2]int]bool, len(g.bold))
	for pos, v := range g.bold {
		if pos[0] >= beforeRow {
			pos[0] += count
		}
		bold[pos] = v
	}
	g.bold = bold

	if m.InsertErr != nil {
		return &PartialInsertError{Count: count, BeforeRow: beforeRow, Err: m.InsertErr}
	}
	return nil
}

// ApplyFormat implements Ledger.
func (m *MemoryLedger) ApplyFormat(_ context.Context, rng Range, f Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.current()
	if err != nil {
		return err
	}
	for r := rng.FromRow; r <= rng.ToRow; r++ {
		for c := rng.FromCol; c <= rng.ToCol; c++ {
			if f.Bold {
				g.bold[[2]int{r, c}] = true
			} else {
				delete(g.bold, [2]int{r, c})
			}
		}
	}
	return nil
}

// Close implements Ledger.
func (m *MemoryLedger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Set seeds a cell of a worksheet, creating the worksheet if needed.
func (m *MemoryLedger) Set(sheet string, row, col int, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.sheets[sheet]
	if !ok {
		g = newGrid()
		m.sheets[sheet] = g
	}
	g.set(row, col, value)
}

// Value returns a cell of a worksheet.
func (m *MemoryLedger) Value(sheet string, row, col int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.sheets[sheet]; ok {
		return g.get(row, col)
	}
	return ""
}

// Bold reports whether a cell of a worksheet was formatted bold.
func (m *MemoryLedger) Bold(sheet string, row, col int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.sheets[sheet]; ok {
		return g.bold[[2]int{row, col}]
	}
	return false
}

// Writes returns the number of WriteCell calls that succeeded.
func (m *MemoryLedger) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Closed reports whether Close was called.
func (m *MemoryLedger) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (g *grid) get(row, col int) string {
	if cols, ok := g.cells[row]; ok {
		return cols[col]
	}
	return ""
}

func (g *grid) set(row, col int, value string) {
	cols, ok := g.cells[row]
	if !ok {
		cols = map[int]string{}
		g.cells[row] = cols
	}
	if value == "" {
		delete(cols, col)
		return
	}
	cols[col] = value
}
