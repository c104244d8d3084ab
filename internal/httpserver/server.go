// Package httpserver exposes the scrape endpoint for the prometheus sink.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"systemdstat/pkg/logx"
)

type Config struct {
	Addr string
	// RatePerSec limits requests across all clients. <= 0 disables limiting.
	RatePerSec float64
	Burst      int
	// Pprof mounts the runtime profiler under /debug.
	Pprof bool
}

// Server wraps the HTTP server and its router.
type Server struct {
	http *http.Server
	log  logx.Logger
}

// New builds the router. metrics may be nil, in which case /metrics is 404.
func New(cfg Config, metrics http.Handler, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := chi.NewRouter()
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(log))
	if cfg.RatePerSec > 0 {
		r.Use(RateLimit(cfg.RatePerSec, cfg.Burst))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	if cfg.Pprof {
		r.Mount("/debug", middleware.Profiler())
	}

	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		log: log,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve blocks serving on ln. A graceful shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("http server listening", logx.String("addr", ln.Addr().String()))
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
