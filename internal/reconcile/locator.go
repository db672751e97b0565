package reconcile

import (
	"context"
	"errors"
	"fmt"

	"fiidy/internal/ledger"
)

// Block is the active historical block: rows [StartingPoint, NextRowToBeFilled).
type Block struct {
	StartingPoint     int
	NextRowToBeFilled int
	ValueCol          int
	TickerCol         int
	// ValueCells and TickerValues have one entry per block row.
	ValueCells   []ledger.Cell
	TickerValues []string
}

// Size is the number of rows in the block.
func (b Block) Size() int {
	return b.NextRowToBeFilled - b.StartingPoint
}

// Filled counts the non-empty value cells.
func (b Block) Filled() int {
	n := 0
	for _, c := range b.ValueCells {
		if !c.Empty() {
			n++
		}
	}
	return n
}

// Registered reports whether ticker already occupies a row of the block.
func (b Block) Registered(ticker string) bool {
	t := NormalizeTicker(ticker)
	for _, v := range b.TickerValues {
		if v == t {
			return true
		}
	}
	return false
}

// LocateBlock finds the active block of size rows below the value header.
// The ticker header is optional; without it the configured ticker column
// is used.
func LocateBlock(ctx context.Context, l ledger.Ledger, layout Layout, size int) (Block, error) {
	header, err := findHeader(ctx, l, layout.ValueHeader, layout.HeaderRow)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		StartingPoint:     header.Row + 1,
		NextRowToBeFilled: header.Row + 1 + size,
		ValueCol:          header.Col,
		TickerCol:         layout.TickerCol,
	}
	if layout.TickerHeader != "" {
		th, err := findHeader(ctx, l, layout.TickerHeader, layout.HeaderRow)
		switch {
		case err == nil:
			block.TickerCol = th.Col
		case errors.As(err, new(*LocatorError)):
		default:
			return Block{}, err
		}
	}
	if size <= 0 {
		return block, nil
	}

	last := block.NextRowToBeFilled - 1
	values, err := l.ReadRange(ctx, block.StartingPoint, block.ValueCol, last, block.ValueCol)
	if err != nil {
		return Block{}, fmt.Errorf("read block values: %w", err)
	}
	tickers, err := l.ReadRange(ctx, block.StartingPoint, block.TickerCol, last, block.TickerCol)
	if err != nil {
		return Block{}, fmt.Errorf("read block tickers: %w", err)
	}

	block.ValueCells = make([]ledger.Cell, size)
	block.TickerValues = make([]string, size)
	for i := 0; i < size; i++ {
		block.ValueCells[i] = ledger.Cell{Row: block.StartingPoint + i, Col: block.ValueCol}
	}
	for _, c := range values {
		if i := c.Row - block.StartingPoint; i >= 0 && i < size {
			block.ValueCells[i].Value = c.Value
		}
	}
	for _, c := range tickers {
		if i := c.Row - block.StartingPoint; i >= 0 && i < size {
			block.TickerValues[i] = NormalizeTicker(c.Value)
		}
	}
	return block, nil
}

// InferBlockSize derives the size of the active block when the master list
// was not read in this run. The summary row of the previous block carries
// the running total, so the first non-empty total cell below the starting
// point ends the active block. Without a previous block fallback is used.
func InferBlockSize(ctx context.Context, l ledger.Ledger, layout Layout, fallback int) (int, error) {
	header, err := findHeader(ctx, l, layout.ValueHeader, layout.HeaderRow)
	if err != nil {
		return 0, err
	}
	start := header.Row + 1

	totals, err := l.ReadColumn(ctx, layout.TotalCol)
	if err != nil {
		return 0, fmt.Errorf("read total column: %w", err)
	}
	// totals[i] is row i+1
	for i := start; i < len(totals); i++ {
		if totals[i] != "" {
			return i + 1 - start, nil
		}
	}
	return fallback, nil
}

func findHeader(ctx context.Context, l ledger.Ledger, name string, fromRow int) (ledger.Cell, error) {
	cell, err := l.FindHeaderCell(ctx, name, fromRow)
	if err != nil {
		if errors.Is(err, ledger.ErrCellNotFound) {
			return ledger.Cell{}, &LocatorError{Column: name, FromRow: fromRow, Err: err}
		}
		return ledger.Cell{}, fmt.Errorf("find header %q: %w", name, err)
	}
	return cell, nil
}
