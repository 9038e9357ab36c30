// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package main is the entry point for the Reelsmith gateway.
//
// Reelsmith is a self-hosted Stremio addon that turns a user's own AI
// provider account (OpenAI, Groq, DeepSeek, OpenRouter, or Gemini) into
// personalized movie and series catalogs. The server initializes in this
// order:
//
//  1. Configuration: koanf v2 with layered sources (defaults, config
//     file, REELSMITH_-prefixed environment variables)
//  2. Logging: zerolog, JSON or console format
//  3. Catalog cache: memory, Badger, or Redis backend
//  4. Upstream client pool and provider factory
//  5. Title resolution: Cinemeta client, optional RPDB posters
//  6. HTTP router: chi with the Stremio and management surfaces
//  7. Supervision tree: suture runs the HTTP server and the janitors
//
// Shutdown is graceful on SIGINT/SIGTERM with a bounded timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	openai "github.com/sashabaranov/go-openai"

	"github.com/reelsmith/reelsmith/internal/api"
	"github.com/reelsmith/reelsmith/internal/cache"
	"github.com/reelsmith/reelsmith/internal/catalog"
	"github.com/reelsmith/reelsmith/internal/clientpool"
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metadata"
	"github.com/reelsmith/reelsmith/internal/provider"
	"github.com/reelsmith/reelsmith/internal/signals"
	"github.com/reelsmith/reelsmith/internal/supervisor"
	"github.com/reelsmith/reelsmith/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("addr", cfg.Server.Addr).Msg("Starting Reelsmith")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Cache close failed")
		}
	}()

	pool := clientpool.New[*openai.Client](cfg.Pool.MaxClients, cfg.Pool.IdleTTL)
	factory := provider.NewFactory(cfg.Providers, pool)

	cinemeta := metadata.NewCinemetaClient(cfg.Metadata.CinemetaURL, cfg.Metadata.Timeout)
	resolver := metadata.NewResolver(cinemeta, cfg.Metadata.MaxConcurrent)
	rpdb := metadata.NewRPDBClient(cfg.Metadata.RPDBURL)

	var weather catalog.WeatherSource
	if cfg.Signals.WeatherEnabled {
		weather = signals.NewWeatherClient(cfg.Signals)
	}

	generator := catalog.NewGenerator(catalog.Options{
		Store:          store,
		Providers:      factory,
		Resolver:       resolver,
		RPDB:           rpdb,
		Weather:        weather,
		TTL:            cfg.Cache.TTL,
		FailureBackoff: cfg.Cache.FailureBackoff,
	})

	codec, err := config.NewTokenCodec(cfg.Security.TokenSecret)
	if err != nil {
		return fmt.Errorf("initializing token codec: %w", err)
	}

	server := api.NewServer(codec, generator, factory, cfg.Server.RequestTimeout)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(server, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(services.NewJanitorService("cache-janitor", cfg.Cache.SweepInterval, func(ctx context.Context) {
		store.Sweep(ctx)
		generator.SweepFailures()
	}))
	tree.AddMaintenanceService(services.NewJanitorService("pool-janitor", cfg.Pool.SweepInterval, func(_ context.Context) {
		pool.Sweep()
	}))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervision tree: %w", err)
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
