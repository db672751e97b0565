package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fiidy/internal/reconcile"
)

// Extractor yields the record of one ticker. A page without dividend data
// gives a record with empty fields and a nil error; errors are reserved
// for transport failures.
type Extractor interface {
	Extract(ctx context.Context, ticker string) (reconcile.Record, error)
}

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PageExtractor fetches the fund page of a ticker and parses its
// dividend table.
type PageExtractor struct {
	fetcher     Fetcher
	urlTemplate string
	parse       ParseOptions
	logger      *slog.Logger
}

// NewPageExtractor creates an extractor. urlTemplate has one %s verb for
// the lower-cased ticker.
func NewPageExtractor(fetcher Fetcher, urlTemplate string, parse ParseOptions, logger *slog.Logger) *PageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageExtractor{
		fetcher:     fetcher,
		urlTemplate: urlTemplate,
		parse:       parse,
		logger:      logger.With(slog.String("component", "extractor")),
	}
}

// URL returns the page address of ticker.
func (p *PageExtractor) URL(ticker string) string {
	return fmt.Sprintf(p.urlTemplate, strings.ToLower(reconcile.NormalizeTicker(ticker)))
}

// Extract implements Extractor.
func (p *PageExtractor) Extract(ctx context.Context, ticker string) (reconcile.Record, error) {
	rec := reconcile.Record{Ticker: reconcile.NormalizeTicker(ticker)}
	url := p.URL(ticker)
	p.logger.InfoContext(ctx, "processing", slog.String("ticker", rec.Ticker), slog.String("url", url))

	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, ErrPageNotFound) {
			p.logger.WarnContext(ctx, "fund page not found", slog.String("ticker", rec.Ticker), slog.String("url", url))
			return rec, nil
		}
		return rec, err
	}

	value, date, err := ParseDividendTable(bytes.NewReader(page), p.parse)
	if err != nil {
		p.logger.WarnContext(ctx, "no dividend data on page",
			slog.String("ticker", rec.Ticker),
			slog.String("error", err.Error()))
		return rec, nil
	}
	rec.Value, rec.Date = value, date
	return rec, nil
}

// Close releases the fetcher when it holds resources.
func (p *PageExtractor) Close() error {
	if c, ok := p.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
