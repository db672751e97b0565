package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome before reading them,
// for sources that build the dividend table client side.
type BrowserFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	waitFor     string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewBrowserFetcher starts the browser allocator. waitFor is the selector
// that must be visible before the HTML is read; empty waits for body.
func NewBrowserFetcher(headless bool, waitFor string, timeout time.Duration, logger *slog.Logger) *BrowserFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if waitFor == "" {
		waitFor = "body"
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &BrowserFetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		waitFor:     waitFor,
		timeout:     timeout,
		logger:      logger.With(slog.String("component", "browser_fetcher")),
	}
}

// Fetch implements Fetcher. Each page gets its own tab.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(b.waitFor, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("extractor: render %s: %w", url, err)
	}
	b.logger.DebugContext(ctx, "page rendered",
		slog.String("url", url),
		slog.Duration("duration", time.Since(start)),
		slog.Int("bytes", len(html)))
	return []byte(html), nil
}

// Close stops the browser.
func (b *BrowserFetcher) Close() error {
	b.cancelAlloc()
	return nil
}
