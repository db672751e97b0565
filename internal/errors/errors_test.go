package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewLedgerError("write cell H10", cause).WithContext("row", 10)

	assert.Equal(t, "[LEDGER] write cell H10: quota exceeded", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 10, err.Context["row"])

	wrapped := fmt.Errorf("run: %w", err)
	assert.Equal(t, ErrTypeLedger, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(cause))
}

func TestAppErrorWithoutCause(t *testing.T) {
	err := NewNotFoundError("last run")
	assert.Equal(t, "[NOT_FOUND] last run not found", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrValidation("tickers", "tickers must match the ticker pattern"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			ErrorCode string          `json:"error_code"`
			Details   ValidationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.ErrorCode)
	assert.Equal(t, "tickers", body.Error.Details.Field)
}

func TestProblemDetailsMarshalFlattensExtensions(t *testing.T) {
	p := NewProblemDetails(http.StatusConflict, TypeRunning, "Conflict", "busy", "/api/v1/runs").
		WithExtension("trace_id", "abc")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc", got["trace_id"])
	assert.Equal(t, float64(409), got["status"])
	assert.Equal(t, "busy", got["detail"])
	assert.Equal(t, "/api/v1/runs", got["instance"])
}
