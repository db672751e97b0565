package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiidy/internal/config"
	"fiidy/internal/infrastructure"
	handlers "fiidy/internal/transport/http"
)

func newTestApplication(t *testing.T, collector *stubCollector) (*Application, *countingOpener) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RateLimit.Enabled = false

	providers, err := infrastructure.InitializeOTel(config.TelemetryConfig{
		ServiceName:    "fiidy-test",
		MetricExporter: "prometheus",
	}, quietLogger())
	require.NoError(t, err)

	runMetrics, err := infrastructure.NewRunMetrics(providers.Meter)
	require.NoError(t, err)

	opener := &countingOpener{ledger: newLedger("ABCD11", "EFGH11")}
	components := &Components{
		Config:    cfg,
		Logger:    quietLogger(),
		Providers: providers,
		Runner:    newTestRunner(opener, collector, WithRunMetrics(runMetrics), WithTracer(providers.Tracer)),
		closers:   []func(context.Context) error{providers.Shutdown},
	}
	t.Cleanup(func() { components.Close(context.Background()) })
	return NewApplication(cfg, components, quietLogger()), opener
}

func TestApplicationRoutes(t *testing.T) {
	a, opener := newTestApplication(t, &stubCollector{records: fresh()})

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/last", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"tickers":["ABCD11"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		st, ok := a.Components.Runner.Status()
		return ok && !st.Running
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "ABCD11", opener.ledger.Value("DY", 10, 1))

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/last", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"written":1`)

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dy_run_duration_seconds")
}

func TestApplicationRejectsSecondRun(t *testing.T) {
	collector := &stubCollector{records: fresh(), release: make(chan struct{})}
	a, _ := newTestApplication(t, collector)

	post := func() int {
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusAccepted, post())
	assert.Equal(t, http.StatusConflict, post())

	close(collector.release)
	assert.Eventually(t, func() bool {
		st, ok := a.Components.Runner.Status()
		return ok && !st.Running
	}, time.Second, 5*time.Millisecond)
}

func TestApplicationUnknownRoute(t *testing.T) {
	a, _ := newTestApplication(t, &stubCollector{})

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/not-found")
}

func TestRunOptionsFollowFreshnessConfig(t *testing.T) {
	a, _ := newTestApplication(t, &stubCollector{records: fresh()})
	assert.True(t, a.scheduledRunOptions().FreshnessLimited)

	a.Config.Search.FreshnessLimited = false
	assert.False(t, a.scheduledRunOptions().FreshnessLimited)

	svc := runService{runner: a.Components.Runner, freshnessLimited: false}
	assert.False(t, svc.options(handlers.RunRequest{}).FreshnessLimited)

	limited := true
	opts := svc.options(handlers.RunRequest{Tickers: []string{"ABCD11"}, FreshnessLimited: &limited, Resume: true})
	assert.True(t, opts.FreshnessLimited)
	assert.True(t, opts.Resume)
	assert.Equal(t, []string{"ABCD11"}, opts.Tickers)
}
