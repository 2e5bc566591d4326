// Package http serves the liveness and status endpoints of the bot process.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/commands"
)

const checkTimeout = 3 * time.Second

// HealthChecker pings the database
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ReadyChecker reports whether the gateway connection is up
type ReadyChecker interface {
	Ready() bool
}

// InfoSource describes the running bot session
type InfoSource interface {
	Info() commands.BotInfo
}

// Handlers serves the health endpoints
type Handlers struct {
	db     HealthChecker
	bot    ReadyChecker
	info   InfoSource
	logger *zap.Logger
}

// NewHandlers creates the health handlers
func NewHandlers(db HealthChecker, bot ReadyChecker, info InfoSource, logger *zap.Logger) *Handlers {
	return &Handlers{
		db:     db,
		bot:    bot,
		info:   info,
		logger: logger,
	}
}

// Status is the body of the /status endpoint
type Status struct {
	Database  string `json:"database"`
	Discord   string `json:"discord"`
	Bot       string `json:"bot,omitempty"`
	Guilds    int    `json:"guilds"`
	Members   int    `json:"members"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthHandler answers 200 OK while the database is reachable
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status, body := http.StatusOK, "OK"
	if err := h.db.Health(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		status, body = http.StatusServiceUnavailable, "database unavailable"
	}

	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Error("failed to write health check response", zap.Error(err))
	}
}

// StatusHandler reports the database and gateway state as JSON. It answers
// 503 unless both are up.
func (h *Handlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	st := Status{Database: "ok", Discord: "disconnected"}
	code := http.StatusOK
	if err := h.db.Health(ctx); err != nil {
		st.Database = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if h.bot.Ready() {
		st.Discord = "ready"
	} else {
		code = http.StatusServiceUnavailable
	}
	if h.info != nil {
		info := h.info.Info()
		st.Bot = info.Name
		st.Guilds = info.Guilds
		st.Members = info.Members
		st.LatencyMS = info.Latency.Milliseconds()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(st); err != nil {
		h.logger.Error("failed to write status response", zap.Error(err))
	}
}

// Server wraps the HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(handlers *Handlers, port string, logger *zap.Logger) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      loggingMiddleware(routes(handlers), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("HTTP server configured", zap.String("port", port))

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}
}

func routes(handlers *Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.HandleFunc("/status", handlers.StatusHandler)
	return mux
}

// Serve starts the HTTP server
func (s *Server) Serve() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}

// loggingMiddleware logs every request; successful ones at debug level
func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			logger.Warn("HTTP request completed", fields...)
			return
		}
		logger.Debug("HTTP request completed", fields...)
	})
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
