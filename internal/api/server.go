// Package api exposes search sessions and the token codec over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"estate-search/internal/common/config"
	"estate-search/internal/common/logger"
)

// NewRouter mounts the API, health and metrics routes.
func NewRouter(h *Handlers, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.CloseSession)

				r.Patch("/filters", h.PatchFilters)
				r.Put("/filters", h.ReplaceFilters)
				r.Delete("/filters", h.ResetFilters)

				r.Post("/localities", h.AddLocality)
				r.Delete("/localities/{localityId}", h.RemoveLocality)
			})
		})

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/encode", h.EncodeToken)
			r.Get("/{token}", h.DecodeToken)
		})
	})

	return r
}

type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

func NewServer(cfg config.ServerConfig, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      handler,
			ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		},
		logger: log.WithFields(map[string]interface{}{"component": "http-server"}),
	}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server", nil)
	return s.httpServer.Shutdown(ctx)
}
