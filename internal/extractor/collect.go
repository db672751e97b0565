package extractor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"fiidy/internal/reconcile"
)

// CollectOptions bounds how hard the source is hit.
type CollectOptions struct {
	// Concurrency is the number of pages fetched at once. Default 1.
	Concurrency int
	// RequestsPerSecond paces fetches; 0 disables pacing.
	RequestsPerSecond float64
	// BreakerFailures consecutive failures open the circuit. 0 disables it.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Collector extracts a set of tickers into a record store.
type Collector struct {
	extractor   Extractor
	concurrency int
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *slog.Logger
}

// NewCollector wraps ex with pacing and a circuit breaker.
func NewCollector(ex Extractor, opts CollectOptions, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		extractor:   ex,
		concurrency: opts.Concurrency,
		logger:      logger.With(slog.String("component", "collector")),
	}
	if c.concurrency <= 0 {
		c.concurrency = 1
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if opts.BreakerFailures > 0 {
		failures := opts.BreakerFailures
		st := gobreaker.Settings{
			Name:    "fund-pages",
			Timeout: opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}
		c.breaker = gobreaker.NewCircuitBreaker(st)
	}
	return c
}

// Collect implements reconcile.Collector. The store follows the order of
// tickers whatever order the pages complete in.
func (c *Collector) Collect(ctx context.Context, tickers []string) *reconcile.RecordStore {
	records := make([]reconcile.Record, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			records[i] = c.collectOne(gctx, ticker)
			return nil
		})
	}
	_ = g.Wait()

	store := reconcile.NewRecordStore()
	for _, r := range records {
		if !store.Add(r) {
			c.logger.Debug("duplicate ticker ignored", slog.String("ticker", r.Ticker))
		}
	}
	return store
}

func (c *Collector) collectOne(ctx context.Context, ticker string) reconcile.Record {
	empty := reconcile.Record{Ticker: reconcile.NormalizeTicker(ticker)}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("extraction cancelled", slog.String("ticker", empty.Ticker), slog.String("error", err.Error()))
			return empty
		}
	}

	rec, err := c.extract(ctx, ticker)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("source circuit open, ticker skipped", slog.String("ticker", empty.Ticker))
		} else {
			c.logger.Error("extraction failed",
				slog.String("ticker", empty.Ticker),
				slog.String("error", err.Error()))
		}
		return empty
	}
	if !rec.Found() {
		c.logger.Info("no DY info extracted", slog.String("ticker", empty.Ticker))
	}
	rec.Ticker = empty.Ticker
	return rec
}

func (c *Collector) extract(ctx context.Context, ticker string) (reconcile.Record, error) {
	if c.breaker == nil {
		return c.extractor.Extract(ctx, ticker)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.extractor.Extract(ctx, ticker)
	})
	if err != nil {
		return reconcile.Record{}, err
	}
	return out.(reconcile.Record), nil
}
