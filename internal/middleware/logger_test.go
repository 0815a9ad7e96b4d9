package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomshare/roomshare-api/internal/middleware"
	"github.com/roomshare/roomshare-api/internal/observability"
)

type logEntry struct {
	Msg       string `json:"msg"`
	Level     string `json:"level"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id"`
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var ctxLogged bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observability.LoggerFromContext(r.Context()).Info("inside")
		ctxLogged = true
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/user/42?x=1", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	middleware.Logger(base)(next).ServeHTTP(rec, req)

	require.True(t, ctxLogged)
	assert.Equal(t, "req-1", rec.Header().Get(middleware.RequestIDHeader))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, done logEntry
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &done))

	assert.Equal(t, "req-1", inner.RequestID)
	assert.Equal(t, "request completed", done.Msg)
	assert.Equal(t, http.MethodGet, done.Method)
	assert.Equal(t, "/api/user/42", done.Path)
	assert.Equal(t, http.StatusTeapot, done.Status)
	assert.Equal(t, "req-1", done.RequestID)
}

func TestLoggerGeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	middleware.Logger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, rec.Header().Get(middleware.RequestIDHeader), 36)

	var done logEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &done))
	assert.Equal(t, http.StatusOK, done.Status)
}

func TestRecover(t *testing.T) {
	h := middleware.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal error","code":"INTERNAL"}`, rec.Body.String())
}
