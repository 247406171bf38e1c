package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/gsokit/gsoscope/internal/observability"
	"github.com/gsokit/gsoscope/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	health := s.deps.Health
	if s.cfg.Health.Enabled {
		s.router.Get("/health", health.HealthHandler)
		s.router.Get("/health/live", health.LivenessHandler)
		s.router.Get("/health/ready", health.ReadinessHandler)
		s.router.Get("/health/startup", health.StartupHandler)
	}

	s.router.Get("/version", handlers.VersionHandler(s.deps.Identity, s.deps.Build))

	if s.cfg.Metrics.Enabled {
		s.router.Get("/metrics", s.metricsHandler)
	}

	if s.deps.Searcher != nil {
		search := handlers.NewSearchHandler(s.deps.Searcher, s.cfg)
		s.router.Post("/v1/search", search.Search)
		s.router.Get("/v1/platforms", search.Platforms)
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts the gofulmen signal endpoint behind a bearer
// token. Without a token it stays unmounted.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	tokenVar := s.deps.Identity.Env("ADMIN_TOKEN")

	if s.deps.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled", zap.String("env", tokenVar))
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.deps.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
