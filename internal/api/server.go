package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"calendarbot/internal/api/health"
	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// ServerConfig contains configuration for the HTTP server
type ServerConfig struct {
	Addr        string
	ServiceName string
	Version     string
}

// Server serves the health probes and the Prometheus endpoint
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates the server with all routes mounted
func NewServer(cfg ServerConfig, healthHandler *health.Handler) *Server {
	mux := http.NewServeMux()

	healthHandler.Register(mux)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service": cfg.ServiceName,
			"version": cfg.Version,
			"status":  "running",
		})
	})

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: logger.Get().With("component", "http_server"),
	}
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.httpServer.Addr)
	}
	s.log.Infow("HTTP server listening", "addr", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown waits for active connections within ctx
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}
	s.log.Infow("HTTP server stopped")
	return nil
}
