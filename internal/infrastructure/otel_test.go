package infrastructure

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiidy/internal/config"
)

func TestInitializeOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:    "fiidy-test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTelRejectsUnknownExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{ServiceName: "fiidy-test", TraceExporter: "jaeger"}, nil)
	assert.Error(t, err)

	_, err = InitializeOTel(config.TelemetryConfig{ServiceName: "fiidy-test", MetricExporter: "statsd"}, nil)
	assert.Error(t, err)
}

func TestRunMetricsExposedThroughPrometheus(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:    "fiidy-test",
		Environment:    "test",
		MetricExporter: "prometheus",
	}, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())
	require.NotNil(t, providers.PrometheusHTTP)

	m, err := NewRunMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.RowWritten(ctx, "ABCD11")
	m.RowWritten(ctx, "EFGH11")
	m.RowDeferred(ctx, "IJKL11")
	m.BlockOpened(ctx, 3)
	m.ExtractionEmpty(ctx, "MNOP11")
	m.RunFinished(ctx, 1500*time.Millisecond, "done")

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "dy_rows_written_total")
	assert.Contains(t, text, `ticker="ABCD11"`)
	assert.Contains(t, text, "dy_rows_deferred_total")
	assert.Contains(t, text, "dy_blocks_opened_total")
	assert.Contains(t, text, "dy_extraction_empty_total")
	assert.Contains(t, text, "dy_run_duration_seconds")
	assert.Contains(t, text, `outcome="done"`)
}

func TestRecordErrorWithoutSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(context.Background(), assert.AnError)
		RecordError(context.Background(), nil)
	})
}
