package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fiidy/internal/ledger"
)

// Collector produces the record store of a run. extractor.Collector
// implements it.
type Collector interface {
	Collect(ctx context.Context, tickers []string) *RecordStore
}

// RunRequest is the input of one reconciliation run.
type RunRequest struct {
	// Tickers restricts the run; empty means the whole master list.
	Tickers []string
	// FreshnessLimited=false bypasses the day limit, for backfills.
	FreshnessLimited bool
	// Store, when non-empty, is used instead of collecting. The master
	// list is not read and no block is opened.
	Store *RecordStore
}

// Result is the outcome of a run.
type Result struct {
	Started      time.Time    `json:"started"`
	Finished     time.Time    `json:"finished"`
	Tickers      []string     `json:"tickers"`
	MasterCount  int          `json:"master_count"`
	Aborted      bool         `json:"aborted"`
	Reason       string       `json:"reason,omitempty"`
	Expanded     bool         `json:"expanded"`
	Block        BlockSummary `json:"block"`
	Registration Registration `json:"registration"`
	Report       FillReport   `json:"report"`
	Records      []Record     `json:"records"`
}

// BlockSummary is the row range of the block a run wrote into.
type BlockSummary struct {
	StartingPoint     int `json:"starting_point"`
	NextRowToBeFilled int `json:"next_row_to_be_filled"`
}

// Outcome labels the result for metrics.
func (r *Result) Outcome() string {
	switch {
	case r == nil:
		return "failed"
	case r.Aborted:
		return "aborted"
	default:
		return "completed"
	}
}

// Engine runs reconciliations against a ledger handle owned by the caller.
type Engine struct {
	layout    Layout
	collector Collector
	logger    *slog.Logger
	metrics   Recorder
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleep replaces the inter-write delay.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithMetrics sets the run metrics recorder.
func WithMetrics(m Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. collector may be nil when every run comes
// with a pre-populated store.
func NewEngine(layout Layout, collector Collector, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		layout:    layout,
		collector: collector,
		logger:    logger.With(slog.String("component", "reconcile")),
		metrics:   nopRecorder{},
		now:       time.Now,
		sleep:     Throttle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile collects records, locates the active block, opens a new one
// when it is full and fills it. ErrNoData is returned together with an
// aborted Result when no ticker yielded a value.
func (e *Engine) Reconcile(ctx context.Context, l ledger.Ledger, req RunRequest) (*Result, error) {
	res := &Result{Started: e.now()}
	err := e.reconcile(ctx, l, req, res)
	res.Finished = e.now()
	e.metrics.RunFinished(ctx, res.Finished.Sub(res.Started), outcomeOf(res, err))
	return res, err
}

func outcomeOf(res *Result, err error) string {
	if err != nil && !errors.Is(err, ErrNoData) {
		return "failed"
	}
	return res.Outcome()
}

func (e *Engine) reconcile(ctx context.Context, l ledger.Ledger, req RunRequest, res *Result) error {
	log := e.logger
	store := req.Store
	tickers := normalizeAll(req.Tickers)

	if store.Len() == 0 {
		master, err := ReadMasterList(ctx, l, e.layout)
		if err != nil {
			return err
		}
		res.MasterCount = len(master)
		if len(tickers) == 0 {
			tickers = master
		}
		log.Info("tickers to be processed", slog.Any("tickers", tickers), slog.Int("master_count", len(master)))
		if e.collector == nil {
			return fmt.Errorf("reconcile: no collector configured and no records given")
		}
		store = e.collector.Collect(ctx, tickers)
	} else if len(tickers) == 0 {
		tickers = store.Tickers()
	}
	res.Tickers = tickers
	res.Records = store.Records()

	log.Info("processing records", slog.Int("records", store.Len()))
	for _, r := range res.Records {
		if !r.Found() {
			e.metrics.ExtractionEmpty(ctx, r.Ticker)
		}
		log.Info("record",
			slog.String("ticker", r.Ticker),
			slog.String("value", r.Value),
			slog.String("date", r.Date))
	}
	if !store.AnyExtracted() {
		res.Aborted = true
		res.Reason = ErrNoData.Error()
		log.Warn("could not extract any ticker from source, check for source website updates")
		return ErrNoData
	}

	if err := l.SelectWorksheet(ctx, e.layout.DYTab); err != nil {
		return fmt.Errorf("select dy tab: %w", err)
	}

	size := res.MasterCount
	if size == 0 {
		inferred, err := e.resumedBlockSize(ctx, l, store)
		if err != nil {
			return err
		}
		size = inferred
		log.Info("block size inferred from ledger", slog.Int("rows", size))
	}

	block, err := LocateBlock(ctx, l, e.layout, size)
	if err != nil {
		return err
	}
	log.Info("active block located",
		slog.Int("starting_point", block.StartingPoint),
		slog.Int("next_row_to_be_filled", block.NextRowToBeFilled))

	res.Registration = CheckRegistration(log, tickers, block, store)

	block, res.Expanded, err = ExpandBlock(ctx, log, l, e.layout, block, res.MasterCount, res.Registration.Filled)
	if err != nil {
		return err
	}
	if res.Expanded {
		e.metrics.BlockOpened(ctx, res.MasterCount)
	}
	res.Block = BlockSummary{StartingPoint: block.StartingPoint, NextRowToBeFilled: block.NextRowToBeFilled}

	res.Report, err = FillRows(ctx, l, e.layout, block, store, FillOptions{
		FreshnessLimited: req.FreshnessLimited,
		Now:              e.now,
		Sleep:            e.sleep,
		Logger:           log,
		Metrics:          e.metrics,
	})
	if err != nil {
		return err
	}

	log.Info("reconciliation finished",
		slog.Int("written", res.Report.Written),
		slog.Int("skipped", res.Report.Skipped),
		slog.Int("deferred", res.Report.Deferred),
		slog.Int("carried_over", len(res.Report.CarriedOver)),
		slog.Bool("expanded", res.Expanded))
	return nil
}

func normalizeAll(tickers []string) []string {
	var out []string
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		n := NormalizeTicker(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// resumedBlockSize sizes the active block when records were given instead
// of collected. A previous summary row bounds the block; otherwise the
// tickers tab does. The master count is not reported on the result, so no
// block is opened.
func (e *Engine) resumedBlockSize(ctx context.Context, l ledger.Ledger, store *RecordStore) (int, error) {
	size, err := InferBlockSize(ctx, l, e.layout, 0)
	if err != nil || size > 0 {
		return size, err
	}

	master, err := ReadMasterList(ctx, l, e.layout)
	if err != nil {
		return 0, err
	}
	if err := l.SelectWorksheet(ctx, e.layout.DYTab); err != nil {
		return 0, fmt.Errorf("select dy tab: %w", err)
	}
	if len(master) == 0 {
		return store.Len(), nil
	}
	return len(master), nil
}
