package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"fiidy/internal/ledger"
)

// ExpandBlock opens a new block of masterCount rows above block when every
// value cell of block is filled. The summary row of the new block gets the
// running total of the value column and the average of the ratio column
// over the previous block, both in bold. It returns the block the filler
// must write into and whether a block was opened.
//
// A zero masterCount means the master list was not read in this run and
// no block may be opened.
func ExpandBlock(ctx context.Context, logger *slog.Logger, l ledger.Ledger, layout Layout, block Block, masterCount, filled int) (Block, bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if masterCount <= 0 {
		logger.Info("master ticker count unknown, block expansion skipped")
		return block, false, nil
	}
	if filled < masterCount {
		return block, false, nil
	}

	start := block.StartingPoint
	prevFirst := start + masterCount
	prevLast := prevFirst + block.Size() - 1

	err := l.InsertBlankRows(ctx, masterCount, start)
	if err != nil {
		if !ledger.IsPartialInsert(err) {
			return block, false, fmt.Errorf("insert block of %d rows at row %d: %w", masterCount, start, err)
		}
		logger.Warn("row insertion reported an error but rows were inserted",
			slog.Int("rows", masterCount),
			slog.Int("before_row", start),
			slog.String("error", err.Error()))
	}

	total := fmt.Sprintf("=SUM(%s%d:%s%d)",
		ledger.ColumnName(block.ValueCol), prevFirst, ledger.ColumnName(block.ValueCol), prevLast)
	average := fmt.Sprintf("=AVERAGE(%s%d:%s%d)",
		ledger.ColumnName(layout.RatioCol), prevFirst, ledger.ColumnName(layout.RatioCol), prevLast)

	if err := l.WriteCell(ctx, start, layout.TotalCol, total); err != nil {
		return block, true, fmt.Errorf("write running total: %w", err)
	}
	if err := l.WriteCell(ctx, start, layout.AverageCol, average); err != nil {
		return block, true, fmt.Errorf("write running average: %w", err)
	}
	for _, col := range []int{layout.TotalCol, layout.AverageCol} {
		cell := ledger.Range{FromRow: start, FromCol: col, ToRow: start, ToCol: col}
		if err := l.ApplyFormat(ctx, cell, ledger.Format{Bold: true}); err != nil {
			return block, true, fmt.Errorf("format summary row: %w", err)
		}
	}

	logger.Info("new block opened",
		slog.Int("starting_point", start),
		slog.Int("rows", masterCount),
		slog.String("total", total),
		slog.String("average", average))

	fresh, err := LocateBlock(ctx, l, layout, masterCount)
	if err != nil {
		return block, true, err
	}
	return fresh, true, nil
}
