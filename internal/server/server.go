// Package server implements walletd's HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fyltr/walletd/api"
	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/ledger"
	"github.com/fyltr/walletd/internal/metrics"
)

// Pinger is the part of the ledger connection the health route needs.
type Pinger interface {
	Ping(ctx context.Context) (ledger.PingResult, error)
}

// Server serves the health endpoint and, optionally, Prometheus metrics.
type Server struct {
	Ledger   Pinger
	Cfg      *config.Config
	Hostname string
	Log      *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // served on Cfg.Metrics.Path when enabled
}

// New returns a Server reporting the machine's host name.
func New(cfg *config.Config, pinger Pinger, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) (*Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolving hostname: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Ledger:   pinger,
		Cfg:      cfg,
		Hostname: host,
		Log:      logger,
		Metrics:  m,
		Gatherer: gatherer,
	}, nil
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)

	if s.Cfg.Metrics.Enabled && s.Gatherer != nil {
		path := s.Cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	return recoveryMiddleware(
		requestIDMiddleware(
			loggingMiddleware(mux, s.Log),
		),
		s.Log,
	)
}

// Start binds addr and serves until ctx is cancelled. The URL is logged
// once the listener is bound, so a bind failure is returned before it.
func (s *Server) Start(ctx context.Context, addr, url string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, url)
}

// Serve serves on an already bound listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, url string) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.Cfg.Server.ReadTimeout,
		WriteTimeout: s.Cfg.Server.WriteTimeout,
	}

	s.Log.Info("server starting", "url", url, "addr", ln.Addr().String(), "hostname", s.Hostname)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// jsonOK writes a JSON 200 response.
func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// jsonErr writes a JSON error response.
func jsonErr(w http.ResponseWriter, r *http.Request, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: msg, RequestID: requestID(r.Context())}) //nolint:errcheck
}

// writeError is the generic error responder shared by every route.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", requestID(r.Context()), "error", err)
	jsonErr(w, r, http.StatusInternalServerError, err.Error())
}
