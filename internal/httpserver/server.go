package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/clipflow/internal/config"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/mw"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/routes"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// Server wraps the control API server and its dependencies.
type Server struct {
	http    *http.Server
	logger  logger.Logger
	started time.Time
}

// New builds the HTTP server (router, middlewares, route registration).
func New(cfg *config.Config, loggerClient logger.Logger, d deps.Deps) *Server {
	closing, closeStreams := context.WithCancel(context.Background())
	d.Closing = closing.Done()

	s := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(cfg, loggerClient, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second, // lifted per request by the event stream
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	s.RegisterOnShutdown(closeStreams)

	return &Server{
		http:    s,
		logger:  loggerClient,
		started: d.StartTime,
	}
}

// NewRouter returns the API handler without binding a listener.
func NewRouter(cfg *config.Config, loggerClient logger.Logger, d deps.Deps) http.Handler {
	r := chi.NewRouter()

	// per-request timeouts are set per route group; the event stream has none
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mw.Log(loggerClient))
	if cfg.RateLimitBurst > 0 {
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:        cfg.RateLimitBurst,
			RefillPerMin: cfg.RateLimitPerMin,
			MaxEntries:   1024,
			TrustProxy:   cfg.TrustProxy,
		}, loggerClient))
	}

	routes.RegisterAll(r, d)
	return r
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("control API listening", logger.String("addr", ln.Addr().String()))
	err := s.http.Serve(ln)
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
// Open event streams end when their request context is cancelled.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("control API shutting down",
		logger.Duration("uptime", time.Since(s.started)))
	return s.http.Shutdown(ctx)
}
