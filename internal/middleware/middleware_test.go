package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "fiidy/internal/errors"
	"fiidy/internal/infrastructure"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seenRequest, seenTrace string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequest = GetRequestID(r.Context())
		seenTrace = infrastructure.GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, seenRequest, 36)
	assert.Equal(t, seenRequest, seenTrace)
	assert.Equal(t, seenRequest, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "upstream-id", seenRequest)
}

func TestStructuredLoggerLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(409), entry["status"])
	assert.Equal(t, "/api/v1/runs", entry["path"])
}

func TestRecovererAnswersProblem(t *testing.T) {
	handler := apierrors.NewErrorHandler(discardLogger(), false)
	h := Recoverer(discardLogger(), handler)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), apierrors.TypeInternal)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	handler := apierrors.NewErrorHandler(discardLogger(), false)
	rl := NewRateLimiter(0.001, 1, discardLogger(), handler)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

type runBody struct {
	Tickers []string `json:"tickers" validate:"omitempty,max=500,dive,ticker"`
}

func newValidation() *ValidationMiddleware {
	return NewValidationMiddleware(regexp.MustCompile(`^[A-Z]{4}11$`), discardLogger(),
		apierrors.NewErrorHandler(discardLogger(), false))
}

func TestValidateStruct(t *testing.T) {
	v := newValidation()

	assert.NoError(t, v.ValidateStruct(runBody{Tickers: []string{"ABCD11", "efgh11"}}))
	assert.NoError(t, v.ValidateStruct(runBody{}))

	err := v.ValidateStruct(runBody{Tickers: []string{"ABCD11", "PETR4"}})
	require.Error(t, err)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	details := apiErr.Details.(apierrors.ValidationErrors)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "runBody.tickers[1]", details.Errors[0].Field)
	assert.Contains(t, details.Errors[0].Message, "valid fund ticker")
}

func TestValidateRequestRejectsInvalidJSON(t *testing.T) {
	v := newValidation()
	called := false
	h := v.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"tickers":["ABCD11"]}`, string(body))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"tickers":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"tickers":["ABCD11"]}`)))
	assert.True(t, called)
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator(apierrors.NewErrorHandler(discardLogger(), false), "application/json")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("tickers=ABCD11"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
