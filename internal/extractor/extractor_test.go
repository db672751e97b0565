package extractor

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
)

func newFundSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/abcd11/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fiidy-test", r.Header.Get("User-Agent"))
		w.Write([]byte(namedTablePage))
	})
	mux.HandleFunc("/efgh11/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(legacyPage))
	})
	mux.HandleFunc("/empty11/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>em breve</body></html>`))
	})
	mux.HandleFunc("/down11/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestExtractor(srv *httptest.Server) *PageExtractor {
	fetcher := NewHTTPFetcher(srv.Client(), "fiidy-test", time.Second)
	return NewPageExtractor(fetcher, srv.URL+"/%s/", testParse, nil)
}

func TestPageExtractorExtract(t *testing.T) {
	srv := newFundSite(t)
	ex := newTestExtractor(srv)
	ctx := context.Background()

	rec, err := ex.Extract(ctx, "abcd11")
	require.NoError(t, err)
	assert.Equal(t, "ABCD11", rec.Ticker)
	assert.Equal(t, "0,82", rec.Value)
	assert.Equal(t, "29/02/2024", rec.Date)

	rec, err = ex.Extract(ctx, "EFGH11")
	require.NoError(t, err)
	assert.Equal(t, "9,18", rec.Value)
	assert.Equal(t, "15/02/2024", rec.Date)
}

func TestPageExtractorMissingDataIsEmptyRecord(t *testing.T) {
	srv := newFundSite(t)
	ex := newTestExtractor(srv)

	for _, ticker := range []string{"EMPTY11", "NOPE11"} {
		rec, err := ex.Extract(context.Background(), ticker)
		require.NoError(t, err, ticker)
		assert.False(t, rec.Found(), ticker)
		assert.Equal(t, ticker, rec.Ticker)
	}
}

func TestPageExtractorTransportError(t *testing.T) {
	srv := newFundSite(t)
	ex := newTestExtractor(srv)

	_, err := ex.Extract(context.Background(), "DOWN11")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.True(t, strings.HasSuffix(statusErr.URL, "/down11/"))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().Crawler
	ex, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://fiis.com.br/abcd11/", ex.URL("ABCD11"))
	assert.NoError(t, ex.Close())

	cfg.Source = "ftp"
	_, err = New(cfg, nil)
	assert.Error(t, err)

	opts := OptionsFromConfig(config.Default().Crawler)
	assert.Equal(t, 1, opts.Concurrency)
	assert.Equal(t, uint32(5), opts.BreakerFailures)
}
