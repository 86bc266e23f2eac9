package httputil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "photoportal/pkg/domain-errors"
)

type testRequest struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (r *testRequest) Normalize() {
	if r.Name == " trimmed " {
		r.Name = "trimmed"
	}
}

func (r *testRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Size < 0 {
		return dErrors.New(dErrors.CodeValidation, "size must be non-negative")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := discardLogger()

	t.Run("valid body decodes and validates", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name":"photo.jpg","size":1024}`)
		r := httptest.NewRequest("POST", "/", body)
		w := httptest.NewRecorder()

		req, ok := DecodeAndPrepare[testRequest](w, r, logger, r.Context(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "photo.jpg", req.Name)
		assert.Equal(t, int64(1024), req.Size)
	})

	t.Run("malformed JSON yields bad_request", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name":`)
		r := httptest.NewRequest("POST", "/", body)
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[testRequest](w, r, logger, r.Context(), "req-2")
		require.False(t, ok)
		assert.Equal(t, 400, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(dErrors.CodeBadRequest), resp["error"])
	})

	t.Run("validation failure preserves domain code", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name":"","size":10}`)
		r := httptest.NewRequest("POST", "/", body)
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[testRequest](w, r, logger, r.Context(), "req-3")
		require.False(t, ok)
		assert.Equal(t, 400, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(dErrors.CodeValidation), resp["error"])
	})
}

func TestWriteErrorMapsCodes(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeNotFound, 404},
		{dErrors.CodeForbidden, 403},
		{dErrors.CodeQuotaExceeded, 403},
		{dErrors.CodeConflict, 409},
		{dErrors.CodeValidation, 400},
		{dErrors.CodeUnauthorized, 401},
		{dErrors.CodeUnavailable, 503},
		{dErrors.CodeInternal, 500},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(tc.code, "boom"))
		assert.Equal(t, tc.status, w.Code, "code %s", tc.code)
	}

	t.Run("non-domain error falls back to 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, 500, w.Code)
	})
}
