// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/middleware"
)

// NewRouter assembles the chi router with the full middleware chain.
func NewRouter(s *Server, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.MaxRequestTimeout))
	r.Use(middleware.PrometheusMetrics)

	// Stremio clients load the addon from arbitrary origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}

	// Stremio addon protocol surface.
	r.Get("/manifest.json", s.handleManifest)
	r.Get("/{token}/manifest.json", s.handleUserManifest)
	r.Get("/{token}/catalog/{contentType}/{catalogID}", s.handleCatalog)

	// Management surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/configure", s.handleConfigure)
		r.Get("/health/live", s.handleHealthLive)
		r.Get("/health/ready", s.handleHealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
