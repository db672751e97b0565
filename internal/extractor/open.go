package extractor

import (
	"fmt"
	"log/slog"

	"fiidy/internal/config"
)

// New builds the extractor selected by cfg.Source.
func New(cfg config.CrawlerConfig, logger *slog.Logger) (*PageExtractor, error) {
	parse := ParseOptions{
		Selector:    cfg.SiteComponent,
		DateHeader:  cfg.DateHeader,
		ValueHeader: cfg.ValueHeader,
	}

	var fetcher Fetcher
	switch cfg.Source {
	case config.SourceHTTP:
		fetcher = NewHTTPFetcher(nil, cfg.UserAgent, cfg.Timeout)
	case config.SourceBrowser:
		fetcher = NewBrowserFetcher(cfg.Headless, cfg.SiteComponent, cfg.Timeout, logger)
	default:
		return nil, fmt.Errorf("unknown crawler source: %q", cfg.Source)
	}
	return NewPageExtractor(fetcher, cfg.URLTemplate, parse, logger), nil
}

// OptionsFromConfig maps the crawler section to collector options.
func OptionsFromConfig(cfg config.CrawlerConfig) CollectOptions {
	return CollectOptions{
		Concurrency:       cfg.Concurrency,
		RequestsPerSecond: cfg.RequestsPerSecond,
		BreakerFailures:   cfg.BreakerFailures,
		BreakerCooldown:   cfg.BreakerCooldown,
	}
}
