package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/commands"
)

type stubDB struct{ err error }

func (s stubDB) Health(context.Context) error { return s.err }

type stubBot struct{ ready bool }

func (s stubBot) Ready() bool { return s.ready }

type stubInfo struct{ info commands.BotInfo }

func (s stubInfo) Info() commands.BotInfo { return s.info }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, path, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		dbErr  error
		status int
		body   string
	}{
		{"database up", nil, http.StatusOK, "OK"},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, "database unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(stubDB{err: tt.dbErr}, stubBot{}, nil, zap.NewNop())
			rr := get(t, http.HandlerFunc(h.HealthHandler), "/health")

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.body, rr.Body.String())
		})
	}
}

func TestStatusHandler(t *testing.T) {
	info := stubInfo{info: commands.BotInfo{Name: "warden", Guilds: 3, Members: 120, Latency: 42 * time.Millisecond}}

	tests := []struct {
		name     string
		dbErr    error
		ready    bool
		code     int
		database string
		discord  string
	}{
		{"all up", nil, true, http.StatusOK, "ok", "ready"},
		{"gateway down", nil, false, http.StatusServiceUnavailable, "ok", "disconnected"},
		{"database down", errors.New("timeout"), true, http.StatusServiceUnavailable, "unavailable", "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(stubDB{err: tt.dbErr}, stubBot{ready: tt.ready}, info, zap.NewNop())
			rr := get(t, http.HandlerFunc(h.StatusHandler), "/status")

			assert.Equal(t, tt.code, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var st Status
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
			assert.Equal(t, tt.database, st.Database)
			assert.Equal(t, tt.discord, st.Discord)
			assert.Equal(t, "warden", st.Bot)
			assert.Equal(t, 3, st.Guilds)
			assert.Equal(t, 120, st.Members)
			assert.Equal(t, int64(42), st.LatencyMS)
		})
	}
}

func TestRoutes(t *testing.T) {
	h := NewHandlers(stubDB{}, stubBot{ready: true}, nil, zap.NewNop())
	mux := loggingMiddleware(routes(h), zap.NewNop())

	assert.Equal(t, http.StatusOK, get(t, mux, "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, mux, "/status").Code)
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/auth/callback").Code)
}

func TestResponseWriter_CapturesStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rw.statusCode)
	assert.Equal(t, http.StatusTeapot, rr.Code)
}
