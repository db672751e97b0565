package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apierrors "fiidy/internal/errors"
	"fiidy/internal/infrastructure"
	"fiidy/internal/ledger"
	"fiidy/internal/reconcile"
)

// ErrRunInProgress is returned by Start while another run holds the ledger.
// It renders as 409 Conflict.
var ErrRunInProgress error = apierrors.ErrRunInProgress

// LedgerOpener acquires a ledger handle for one run.
type LedgerOpener func(ctx context.Context) (ledger.Ledger, error)

// RecordCache keeps the record store of a day so an interrupted run can
// be resumed without crawling again. recordcache.RedisCache implements it.
type RecordCache interface {
	Save(ctx context.Context, day time.Time, store *reconcile.RecordStore) error
	Load(ctx context.Context, day time.Time) (*reconcile.RecordStore, bool, error)
	Delete(ctx context.Context, day time.Time) error
}

// RunOptions selects what a run does.
type RunOptions struct {
	Tickers          []string
	FreshnessLimited bool
	// Resume replays the cached record store of today instead of crawling.
	Resume bool
}

// RunStatus is the last run as seen by the HTTP surface.
type RunStatus struct {
	TraceID string            `json:"trace_id"`
	Running bool              `json:"running"`
	Started time.Time         `json:"started"`
	Error   string            `json:"error,omitempty"`
	Result  *reconcile.Result `json:"result,omitempty"`
}

// Runner executes reconciliation runs one at a time. Each run opens its own
// ledger handle and closes it when done, whatever the outcome.
type Runner struct {
	layout    reconcile.Layout
	engine    *reconcile.Engine
	open      LedgerOpener
	collector reconcile.Collector
	cache     RecordCache
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex

	statusMu sync.RWMutex
	status   *RunStatus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerSettings)

type runnerSettings struct {
	cache   RecordCache
	metrics reconcile.Recorder
	tracer  trace.Tracer
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// WithCache enables the record cache.
func WithCache(c RecordCache) RunnerOption {
	return func(s *runnerSettings) { s.cache = c }
}

// WithRunMetrics records run metrics.
func WithRunMetrics(m reconcile.Recorder) RunnerOption {
	return func(s *runnerSettings) { s.metrics = m }
}

// WithTracer wraps every run in a span.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(s *runnerSettings) { s.tracer = t }
}

// WithRunClock replaces the wall clock of runs.
func WithRunClock(now func() time.Time) RunnerOption {
	return func(s *runnerSettings) { s.now = now }
}

// WithWriteSleep replaces the delay between ledger writes.
func WithWriteSleep(sleep func(ctx context.Context, d time.Duration) error) RunnerOption {
	return func(s *runnerSettings) { s.sleep = sleep }
}

// NewRunner creates a runner writing to the ledgers returned by open.
func NewRunner(layout reconcile.Layout, open LedgerOpener, collector reconcile.Collector, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	s := runnerSettings{
		tracer: tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}

	engineOpts := []reconcile.Option{reconcile.WithClock(s.now)}
	if s.metrics != nil {
		engineOpts = append(engineOpts, reconcile.WithMetrics(s.metrics))
	}
	if s.sleep != nil {
		engineOpts = append(engineOpts, reconcile.WithSleep(s.sleep))
	}

	r := &Runner{
		layout:    layout,
		open:      open,
		collector: collector,
		cache:     s.cache,
		tracer:    s.tracer,
		logger:    logger.With(slog.String("component", "runner")),
		now:       s.now,
	}
	if r.cache != nil && collector != nil {
		collector = &cachingCollector{inner: collector, cache: r.cache, now: r.now, logger: r.logger}
	}
	r.engine = reconcile.NewEngine(layout, collector, logger, engineOpts...)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Run executes a run, waiting for any run in progress to finish first.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*reconcile.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run(infrastructure.EnsureTraceID(ctx), opts)
}

// Start launches a run in the background and returns its trace id. It
// fails with ErrRunInProgress when a run is already going. The run
// outlives ctx and is only cancelled by Close.
func (r *Runner) Start(ctx context.Context, opts RunOptions) (string, error) {
	if !r.mu.TryLock() {
		return "", ErrRunInProgress
	}
	traceID := infrastructure.GetTraceID(ctx)
	if traceID == "" {
		traceID = infrastructure.GenerateTraceID()
	}
	runCtx := infrastructure.WithTraceID(r.ctx, traceID)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.mu.Unlock()
		r.run(runCtx, opts)
	}()
	return traceID, nil
}

// Preview collects the records a run would write without touching the
// ledger beyond reading the master list.
func (r *Runner) Preview(ctx context.Context, tickers []string) (*reconcile.RecordStore, error) {
	if r.collector == nil {
		return nil, fmt.Errorf("no collector configured")
	}
	ctx = infrastructure.EnsureTraceID(ctx)
	if len(tickers) == 0 {
		l, err := r.open(ctx)
		if err != nil {
			return nil, apierrors.NewLedgerError("open ledger", err)
		}
		tickers, err = reconcile.ReadMasterList(ctx, l, r.layout)
		if cerr := l.Close(); cerr != nil {
			r.logger.ErrorContext(ctx, "failed to close ledger", slog.String("error", cerr.Error()))
		}
		if err != nil {
			return nil, err
		}
	}
	return r.collector.Collect(ctx, tickers), nil
}

// Status returns the last or current run.
func (r *Runner) Status() (RunStatus, bool) {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	if r.status == nil {
		return RunStatus{}, false
	}
	return *r.status, true
}

// Schedule runs every interval until ctx is done. Ticks that find a run in
// progress are skipped.
func (r *Runner) Schedule(ctx context.Context, every time.Duration, opts RunOptions) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "scheduler started", slog.Duration("every", every))
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler stopped")
			return
		case <-ticker.C:
			traceID, err := r.Start(ctx, opts)
			if errors.Is(err, ErrRunInProgress) {
				r.logger.WarnContext(ctx, "scheduled run skipped, previous run still in progress")
				continue
			}
			r.logger.InfoContext(ctx, "scheduled run started", slog.String("run_trace_id", traceID))
		}
	}
}

// Close cancels background runs and waits for them.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, opts RunOptions) (res *reconcile.Result, err error) {
	ctx, span := r.tracer.Start(ctx, "reconcile.run", trace.WithAttributes(
		attribute.Int("tickers", len(opts.Tickers)),
		attribute.Bool("freshness_limited", opts.FreshnessLimited),
		attribute.Bool("resume", opts.Resume),
	))
	defer span.End()

	started := r.now()
	r.setStatus(&RunStatus{TraceID: infrastructure.GetTraceID(ctx), Running: true, Started: started})
	defer func() {
		status := &RunStatus{TraceID: infrastructure.GetTraceID(ctx), Started: started, Result: res}
		if err != nil {
			status.Error = err.Error()
		}
		r.setStatus(status)
		infrastructure.RecordError(ctx, err)
	}()

	req := reconcile.RunRequest{Tickers: opts.Tickers, FreshnessLimited: opts.FreshnessLimited}
	if opts.Resume {
		req.Store = r.resume(ctx)
	}

	l, err := r.open(ctx)
	if err != nil {
		return nil, apierrors.NewLedgerError("open ledger", err)
	}
	defer func() {
		if cerr := l.Close(); cerr != nil {
			r.logger.ErrorContext(ctx, "failed to close ledger", slog.String("error", cerr.Error()))
		}
	}()

	r.logger.InfoContext(ctx, "run started",
		slog.Int("tickers", len(opts.Tickers)),
		slog.Bool("freshness_limited", opts.FreshnessLimited),
		slog.Bool("resumed", req.Store.Len() > 0))

	res, err = r.engine.Reconcile(ctx, l, req)
	switch {
	case errors.Is(err, reconcile.ErrNoData):
		r.logger.WarnContext(ctx, "run aborted, no data extracted")
	case err != nil:
		r.logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
	default:
		r.forget(ctx, res)
	}
	return res, err
}

// resume loads today's cached store. Cache failures fall back to crawling.
func (r *Runner) resume(ctx context.Context) *reconcile.RecordStore {
	if r.cache == nil {
		r.logger.WarnContext(ctx, "resume requested but no record cache is configured")
		return nil
	}
	store, ok, err := r.cache.Load(ctx, r.now())
	switch {
	case err != nil:
		r.logger.WarnContext(ctx, "failed to load cached records, collecting again", slog.String("error", err.Error()))
		return nil
	case !ok:
		r.logger.InfoContext(ctx, "no cached records for today, collecting again")
		return nil
	}
	r.logger.InfoContext(ctx, "resuming from cached records", slog.Int("records", store.Len()))
	return store
}

// forget drops today's snapshot once every record found a row.
func (r *Runner) forget(ctx context.Context, res *reconcile.Result) {
	if r.cache == nil || res == nil || len(res.Report.CarriedOver) > 0 || res.Report.Deferred > 0 {
		return
	}
	if err := r.cache.Delete(ctx, r.now()); err != nil {
		r.logger.WarnContext(ctx, "failed to drop cached records", slog.String("error", err.Error()))
	}
}

func (r *Runner) setStatus(s *RunStatus) {
	r.statusMu.Lock()
	r.status = s
	r.statusMu.Unlock()
}

// cachingCollector saves every collected store before it is written.
type cachingCollector struct {
	inner  reconcile.Collector
	cache  RecordCache
	now    func() time.Time
	logger *slog.Logger
}

func (c *cachingCollector) Collect(ctx context.Context, tickers []string) *reconcile.RecordStore {
	store := c.inner.Collect(ctx, tickers)
	if store.AnyExtracted() {
		if err := c.cache.Save(ctx, c.now(), store); err != nil {
			c.logger.WarnContext(ctx, "failed to cache records", slog.String("error", err.Error()))
		}
	}
	return store
}

// Describe renders a one-line summary of a result.
func Describe(res *reconcile.Result) string {
	if res == nil {
		return "no result"
	}
	if res.Aborted {
		return fmt.Sprintf("aborted: %s", res.Reason)
	}
	return fmt.Sprintf("block %d-%d: %d written, %d skipped, %d deferred, %d carried over",
		res.Block.StartingPoint, res.Block.NextRowToBeFilled,
		res.Report.Written, res.Report.Skipped, res.Report.Deferred, len(res.Report.CarriedOver))
}
