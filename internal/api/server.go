// Package api exposes the observability HTTP surface: Prometheus metrics,
// health, and the execution summary.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cadence-hq/cadence/internal/metrics"
	"github.com/cadence-hq/cadence/internal/tool"
	"github.com/cadence-hq/cadence/internal/types"
)

// DefaultShutdownTimeout bounds graceful shutdown on context cancellation.
const DefaultShutdownTimeout = 10 * time.Second

// Server serves /metrics, /healthz, and /summary.
type Server struct {
	addr    string
	metrics *metrics.Aggregator
	tools   *tool.Registry
	logger  *slog.Logger

	shutdownTimeout time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger for server events.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithShutdownTimeout overrides the graceful shutdown bound.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, agg *metrics.Aggregator, tools *tool.Registry, opts ...ServerOption) *Server {
	s := &Server{
		addr:            addr,
		metrics:         agg,
		tools:           tools,
		logger:          slog.Default(),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/summary", s.handleSummary)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("observability server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(s.metrics.PrometheusText()))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := types.Healthy("ok")
	if s.tools != nil {
		status = s.tools.Health(r.Context())
	}

	code := http.StatusOK
	if status.State == types.HealthStateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Summary())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
