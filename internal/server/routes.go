package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/server/handlers"
)

const (
	adminRateLimit = 10
	adminRateBurst = 5
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if s.search != nil {
		s.router.Route("/v1", func(r chi.Router) {
			r.Post("/search", s.search.Search)
			r.Get("/rate-limit/{user}", s.search.RemainingBudget)
		})
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts the signal endpoint only when a token is set.
func (s *Server) registerAdminEndpoint() {
	if s.adminToken == "" {
		if s.logger != nil {
			s.logger.Debug("Admin signal endpoint disabled (server.admin_token not set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.adminToken,
		RateLimit: adminRateLimit,
		RateBurst: adminRateBurst,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if s.logger != nil {
		s.logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.Int("rate_limit_per_min", adminRateLimit),
			zap.Int("rate_burst", adminRateBurst))
		s.logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
