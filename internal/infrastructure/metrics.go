package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunMetrics counts what reconciliation runs do to the ledger. It
// implements reconcile.Recorder.
type RunMetrics struct {
	rowsWritten     metric.Int64Counter
	rowsDeferred    metric.Int64Counter
	rowsSkipped     metric.Int64Counter
	blocksOpened    metric.Int64Counter
	extractionEmpty metric.Int64Counter
	runDuration     metric.Float64Histogram
}

// NewRunMetrics registers the run instruments on meter.
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	var (
		m   RunMetrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.rowsWritten, "dy_rows_written_total", "Ledger rows written"},
		{&m.rowsDeferred, "dy_rows_deferred_total", "Records left for a later run by the freshness window"},
		{&m.rowsSkipped, "dy_rows_skipped_total", "Records skipped because the ticker is already in the active block"},
		{&m.blocksOpened, "dy_blocks_opened_total", "Historical blocks opened"},
		{&m.extractionEmpty, "dy_extraction_empty_total", "Tickers for which the source had no dividend data"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}
	m.runDuration, err = meter.Float64Histogram("dy_run_duration_seconds",
		metric.WithDescription("Reconciliation run duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func tickerAttr(ticker string) metric.AddOption {
	return metric.WithAttributes(attribute.String("ticker", ticker))
}

// RowWritten implements reconcile.Recorder.
func (m *RunMetrics) RowWritten(ctx context.Context, ticker string) {
	m.rowsWritten.Add(ctx, 1, tickerAttr(ticker))
}

// RowDeferred implements reconcile.Recorder.
func (m *RunMetrics) RowDeferred(ctx context.Context, ticker string) {
	m.rowsDeferred.Add(ctx, 1, tickerAttr(ticker))
}

// RowSkipped implements reconcile.Recorder.
func (m *RunMetrics) RowSkipped(ctx context.Context, ticker string) {
	m.rowsSkipped.Add(ctx, 1, tickerAttr(ticker))
}

// BlockOpened implements reconcile.Recorder.
func (m *RunMetrics) BlockOpened(ctx context.Context, rows int) {
	m.blocksOpened.Add(ctx, 1, metric.WithAttributes(attribute.Int("rows", rows)))
}

// ExtractionEmpty implements reconcile.Recorder.
func (m *RunMetrics) ExtractionEmpty(ctx context.Context, ticker string) {
	m.extractionEmpty.Add(ctx, 1, tickerAttr(ticker))
}

// RunFinished implements reconcile.Recorder.
func (m *RunMetrics) RunFinished(ctx context.Context, d time.Duration, outcome string) {
	m.runDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// HTTPMetrics instruments the HTTP surface.
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the HTTP instruments on meter.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"))
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{RequestsTotal: requests, RequestDuration: duration, ActiveRequests: active}, nil
}
