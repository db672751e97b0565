package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"fiidy/internal/app"
	"fiidy/internal/config"
	"fiidy/internal/exporter"
	"fiidy/internal/infrastructure"
	"fiidy/internal/reconcile"
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC RECOVERED: %v\n%s\n", r, debug.Stack())
			if logger != nil {
				logger.Error("fiidy panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			}
			code = 1
		}
	}()

	configFile := flag.String("config", "", "path to the YAML configuration file (default: ./config.yaml or configs/config.yaml when present)")
	resume := flag.Bool("resume", false, "write today's cached records instead of crawling again")
	noLimit := flag.Bool("no-limit", false, "ignore the freshness window and backfill older dividends")
	dryRun := flag.Bool("dry-run", false, "collect and print records without writing the ledger")
	export := flag.String("export", "", "with --dry-run, write the collected records to this CSV file instead of stdout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [TICKER...]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 2
	}

	appLogger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		return 2
	}
	defer appLogger.Close()
	logger = appLogger.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "startup failed", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := components.Close(context.Background()); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}()

	tickers := flag.Args()

	if *dryRun {
		store, err := components.Runner.Preview(ctx, tickers)
		if err != nil {
			logger.ErrorContext(ctx, "preview failed", slog.String("error", err.Error()))
			return 1
		}
		if *export != "" {
			if err := exporter.NewCSVWriter(logger).WriteFile(*export, store.Records()); err != nil {
				logger.ErrorContext(ctx, "export failed", slog.String("error", err.Error()))
				return 1
			}
			return 0
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(store.Records()); err != nil {
			return 1
		}
		return 0
	}

	res, err := components.Runner.Run(ctx, app.RunOptions{
		Tickers:          tickers,
		FreshnessLimited: cfg.Search.FreshnessLimited && !*noLimit,
		Resume:           *resume,
	})
	switch {
	case errors.Is(err, reconcile.ErrNoData):
		// the source being empty is not a failure of this program
		logger.WarnContext(ctx, "nothing to write", slog.String("summary", app.Describe(res)))
		return 0
	case err != nil:
		logger.ErrorContext(ctx, "reconciliation failed",
			slog.String("error", err.Error()),
			slog.Bool("fatal", reconcile.IsFatal(err)))
		return 1
	}

	fmt.Println(app.Describe(res))
	for _, ticker := range res.Report.CarriedOver {
		fmt.Printf("carried over: %s\n", ticker)
	}
	return 0
}
