package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fiidy/internal/config"
	"fiidy/internal/extractor"
	"fiidy/internal/infrastructure"
	"fiidy/internal/ledger"
	"fiidy/internal/reconcile"
	"fiidy/internal/recordcache"
)

// Components are the long-lived parts shared by the CLI and the server.
type Components struct {
	Config    *config.Config
	Logger    *slog.Logger
	Providers *infrastructure.OTelProviders
	Runner    *Runner

	closers []func(context.Context) error
}

// Build wires telemetry, the extractor, the optional record cache and the
// runner from cfg. A cache that cannot be reached is logged and skipped.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}

	layout, err := reconcile.LayoutFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger layout: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	c.Providers = providers
	c.closers = append(c.closers, providers.Shutdown)

	runMetrics, err := infrastructure.NewRunMetrics(providers.Meter)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("failed to create run metrics: %w", err)
	}

	ex, err := extractor.New(cfg.Crawler, logger)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	c.closers = append(c.closers, func(context.Context) error { return ex.Close() })
	collector := extractor.NewCollector(ex, extractor.OptionsFromConfig(cfg.Crawler), logger)

	opts := []RunnerOption{
		WithRunMetrics(runMetrics),
		WithTracer(providers.Tracer),
	}
	cache, err := recordcache.Open(ctx, cfg.Cache, logger)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "record cache unavailable, runs cannot be resumed", slog.String("error", err.Error()))
	case cache != nil:
		opts = append(opts, WithCache(cache))
		c.closers = append(c.closers, func(context.Context) error { return cache.Close() })
	}

	open := func(ctx context.Context) (ledger.Ledger, error) {
		return ledger.Open(ctx, cfg.Ledger, logger)
	}
	c.Runner = NewRunner(layout, open, collector, logger, opts...)
	return c, nil
}

// Close stops the runner and releases everything Build acquired, in
// reverse order.
func (c *Components) Close(ctx context.Context) error {
	if c.Runner != nil {
		c.Runner.Close()
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
