package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"fiidy/internal/app"
	"fiidy/internal/config"
	"fiidy/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "path to the YAML configuration file (default: ./config.yaml or configs/config.yaml when present)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Close()

	components, err := app.Build(context.Background(), cfg, logger.Logger)
	if err != nil {
		logger.Error("startup failed", slog.String("error", err.Error()))
		logger.Close()
		os.Exit(1)
	}

	if err := app.NewApplication(cfg, components, logger.Logger).Run(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		logger.Close()
		os.Exit(1)
	}
}
