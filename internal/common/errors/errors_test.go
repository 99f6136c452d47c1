package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warns, errs []string
}

func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.errs = append(l.errs, msg) }

func TestAsStandardError(t *testing.T) {
	wrapped := fmt.Errorf("patch filters: %w", NewInvalidFilterFormatError("bedrooms must be an array"))
	assert.Equal(t, ErrCodeInvalidFilterFormat, AsStandardError(wrapped).Code)

	plain := AsStandardError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidFilterFormat, http.StatusBadRequest},
		{ErrCodeSessionNotFound, http.StatusNotFound},
		{ErrCodeCodecDecodeFailed, http.StatusUnprocessableEntity},
		{ErrCodeSearchTimeout, http.StatusGatewayTimeout},
		{ErrCodeSearchQueryFailed, http.StatusBadGateway},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CODEC", GetErrorCategory(ErrCodeCodecDecodeFailed))
	assert.Equal(t, "CODEC", GetErrorCategory(ErrCodeReconcilerLengthMismatch))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchTimeout))
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionNotFound))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidRequest))
}

func TestErrorHandler_WriteError(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil)
	h.WriteError(rec, req, NewSessionNotFoundError("abc"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error StandardError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeSessionNotFound, body.Error.Code)
	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errs)

	rec = httptest.NewRecorder()
	h.WriteError(rec, req, stderrors.New("unexpected"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, log.errs, 1)
}
