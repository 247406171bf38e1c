// Package server exposes the search engine over HTTP with chi.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gsokit/gsoscope/internal/appid"
	"github.com/gsokit/gsoscope/internal/config"
	apperrors "github.com/gsokit/gsoscope/internal/errors"
	"github.com/gsokit/gsoscope/internal/observability"
	"github.com/gsokit/gsoscope/internal/server/handlers"
	servermw "github.com/gsokit/gsoscope/internal/server/middleware"
)

// Deps are the collaborators the routes serve.
type Deps struct {
	// Searcher backs /v1 routes; they are not mounted when nil.
	Searcher handlers.Searcher
	// Health defaults to a manager with a circuit checker on Searcher.
	Health   *handlers.HealthManager
	Identity appid.Identity
	Build    handlers.BuildInfo
	// AdminToken enables POST /admin/signal when set.
	AdminToken string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    *config.Config
	deps   Deps
}

// New creates a server for cfg.Server with every route registered.
func New(cfg *config.Config, deps Deps) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Identity.BinaryName == "" {
		deps.Identity = appid.Get()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewHealthManager(deps.Build.Version)
		if deps.Searcher != nil {
			deps.Health.RegisterChecker("platform_circuits", handlers.CircuitChecker(deps.Searcher))
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{router: r, cfg: cfg, deps: deps}
	s.registerRoutes()
	return s
}

// Addr returns host:port from the server config.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
}

// Start listens on Addr and blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
	}
	s.deps.Health.MarkStarted()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the health manager serving the probe routes.
func (s *Server) Health() *handlers.HealthManager {
	return s.deps.Health
}
