package server

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/skilldex/internal/api"
	"github.com/cloo-solutions/skilldex/internal/api/handlers"
	"github.com/cloo-solutions/skilldex/internal/api/middleware"
	"github.com/cloo-solutions/skilldex/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	// AuthValidator guards every route except /health and /metrics. Nil disables auth.
	AuthValidator middleware.AuthValidator
	Metrics       *telemetry.Metrics
	// Ping reports database reachability for /health. Optional.
	Ping func(ctx context.Context) error

	SkillHandler *handlers.SkillHandler
	IndexHandler *handlers.IndexHandler
	MCPHandler   http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ping != nil {
			if err := cfg.Ping(r.Context()); err != nil {
				logrus.WithError(err).Warn("health check failed")
				api.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/search", cfg.SkillHandler.Search)
		r.Get("/lint", cfg.SkillHandler.Lint)

		r.Route("/skills", func(r chi.Router) {
			r.Get("/", cfg.SkillHandler.List)
			r.Get("/core", cfg.SkillHandler.Core)
			r.Post("/read-file", cfg.SkillHandler.ReadFile)
			r.Get("/*", cfg.SkillHandler.Get)
		})

		r.Route("/index", func(r chi.Router) {
			r.Get("/status", cfg.IndexHandler.Status)
			r.Post("/rebuild", cfg.IndexHandler.Rebuild)
		})

		if cfg.MCPHandler != nil {
			r.Handle("/mcp", cfg.MCPHandler)
		}
	})

	return r
}
