package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"fiidy/internal/ledger"
)

// Outcome is what the filler did with one record.
type Outcome string

const (
	OutcomeWritten     Outcome = "written"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeDeferred    Outcome = "deferred"
	OutcomeCarriedOver Outcome = "carried_over"
)

// RowOutcome is the per-ticker result of a fill pass. Row is 0 for
// skipped and carried over records.
type RowOutcome struct {
	Ticker      string  `json:"ticker"`
	Row         int     `json:"row,omitempty"`
	Outcome     Outcome `json:"outcome"`
	Value       string  `json:"value,omitempty"`
	Date        string  `json:"date,omitempty"`
	DaysElapsed int     `json:"days_elapsed"`
	Reason      string  `json:"reason,omitempty"`
}

// FillReport aggregates a fill pass.
type FillReport struct {
	Rows        []RowOutcome `json:"rows"`
	Written     int          `json:"written"`
	Skipped     int          `json:"skipped"`
	Deferred    int          `json:"deferred"`
	CarriedOver []string     `json:"carried_over,omitempty"`
}

func (r *FillReport) add(o RowOutcome) {
	r.Rows = append(r.Rows, o)
	switch o.Outcome {
	case OutcomeWritten:
		r.Written++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeDeferred:
		r.Deferred++
	case OutcomeCarriedOver:
		r.CarriedOver = append(r.CarriedOver, o.Ticker)
	}
}

// FillOptions tunes FillRows. Zero values fall back to the wall clock,
// a context-aware sleep and no metrics.
type FillOptions struct {
	FreshnessLimited bool
	Now              func() time.Time
	Sleep            func(ctx context.Context, d time.Duration) error
	Logger           *slog.Logger
	Metrics          Recorder
}

func (o *FillOptions) defaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = Throttle
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
}

// Throttle waits d or until ctx is done.
func Throttle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FillRows writes the records of store into the empty rows of block, in
// store order. Tickers already in the block are skipped. A record whose
// reference date is older than the freshness window leaves its row empty
// for a later run. Writing stops without error when only such rows are
// left; it fails with BlockExhaustedError when no empty row is left at all.
func FillRows(ctx context.Context, l ledger.Ledger, layout Layout, block Block, store *RecordStore, opts FillOptions) (FillReport, error) {
	opts.defaults()
	log := opts.Logger

	var report FillReport
	empty := make(map[int]bool, block.Size())
	for _, c := range block.ValueCells {
		if c.Empty() {
			empty[c.Row] = true
		}
	}
	registered := make(map[string]bool, block.Size())
	for _, t := range block.TickerValues {
		if t != "" {
			registered[t] = true
		}
	}

	now := opts.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cursor := block.StartingPoint

	records := store.Records()
	for i, rec := range records {
		if registered[rec.Ticker] {
			log.Debug("ticker already registered", slog.String("ticker", rec.Ticker))
			report.add(RowOutcome{Ticker: rec.Ticker, Outcome: OutcomeSkipped})
			opts.Metrics.RowSkipped(ctx, rec.Ticker)
			continue
		}

		row := nextEmptyRow(empty, cursor, block.NextRowToBeFilled)
		if row == 0 {
			if len(empty) == 0 {
				return report, &BlockExhaustedError{Ticker: rec.Ticker, Limit: block.NextRowToBeFilled}
			}
			for _, rest := range records[i:] {
				if registered[rest.Ticker] {
					continue
				}
				report.add(RowOutcome{Ticker: rest.Ticker, Outcome: OutcomeCarriedOver})
			}
			log.Info("limit reached, remaining tickers carried over to the next run",
				slog.Int("limit", block.NextRowToBeFilled),
				slog.Any("tickers", report.CarriedOver))
			break
		}
		cursor = row + 1

		if !rec.Found() {
			log.Info("no DY info for ticker", slog.String("ticker", rec.Ticker), slog.Int("row", row))
		}

		closeDate := rec.Date
		if closeDate == "" {
			closeDate = today.Format(layout.DateFormat)
		}
		outcome := RowOutcome{Ticker: rec.Ticker, Row: row, Value: rec.Value, Date: closeDate}

		parsed, err := time.ParseInLocation(layout.DateFormat, closeDate, now.Location())
		if err != nil {
			outcome.Outcome = OutcomeDeferred
			outcome.Reason = "unparseable date"
			log.Warn("unparseable reference date, waiting next iteration",
				slog.String("ticker", rec.Ticker),
				slog.String("date", closeDate),
				slog.String("format", layout.DateFormat))
			report.add(outcome)
			opts.Metrics.RowDeferred(ctx, rec.Ticker)
			if err := opts.Sleep(ctx, layout.WriteDelay); err != nil {
				return report, err
			}
			continue
		}

		if opts.FreshnessLimited {
			outcome.DaysElapsed = daysBetween(parsed, today)
		}

		if outcome.DaysElapsed > layout.DaysLimit {
			outcome.Outcome = OutcomeDeferred
			outcome.Reason = fmt.Sprintf("%d days old, limit %d", outcome.DaysElapsed, layout.DaysLimit)
			log.Info("waiting next iteration for ticker",
				slog.String("ticker", rec.Ticker),
				slog.Int("row", row),
				slog.Int("days_elapsed", outcome.DaysElapsed),
				slog.Int("days_limit", layout.DaysLimit))
			report.add(outcome)
			opts.Metrics.RowDeferred(ctx, rec.Ticker)
		} else {
			value := rec.Value
			if value == "" {
				value = "0"
			}
			if err := writeRow(ctx, l, layout, block, row, rec.Ticker, value, closeDate); err != nil {
				return report, err
			}
			delete(empty, row)
			registered[rec.Ticker] = true
			outcome.Outcome = OutcomeWritten
			outcome.Value = value
			log.Info("row written",
				slog.String("ticker", rec.Ticker),
				slog.Int("row", row),
				slog.String("value", value),
				slog.String("date", closeDate))
			report.add(outcome)
			opts.Metrics.RowWritten(ctx, rec.Ticker)
		}

		if err := opts.Sleep(ctx, layout.WriteDelay); err != nil {
			return report, err
		}
	}
	return report, nil
}

func nextEmptyRow(empty map[int]bool, from, limit int) int {
	for r := from; r < limit; r++ {
		if empty[r] {
			return r
		}
	}
	return 0
}

func writeRow(ctx context.Context, l ledger.Ledger, layout Layout, block Block, row int, ticker, value, date string) error {
	cells := []struct {
		col   int
		value string
	}{
		{block.TickerCol, ticker},
		{block.ValueCol, value},
		{layout.DateCol, date},
	}
	for _, c := range cells {
		if err := l.WriteCell(ctx, row, c.col, c.value); err != nil {
			return fmt.Errorf("write %s at row %d: %w", ticker, row, err)
		}
	}
	return nil
}

// daysBetween counts calendar days from a to b, both at midnight.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
