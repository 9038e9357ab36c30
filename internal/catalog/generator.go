// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package catalog orchestrates the generation pipeline: contextual
// signals, cache lookup, single-flight provider call, title resolution,
// and assembly into the Stremio catalog shape. Every outcome produces a
// valid catalog; failures degrade to stale cache entries or a
// single-item placeholder, never an error page.
package catalog

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/reelsmith/reelsmith/internal/cache"
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metadata"
	"github.com/reelsmith/reelsmith/internal/metrics"
	"github.com/reelsmith/reelsmith/internal/models"
	"github.com/reelsmith/reelsmith/internal/provider"
	"github.com/reelsmith/reelsmith/internal/resilience"
	"github.com/reelsmith/reelsmith/internal/signals"
)

// ProviderFactory builds a Provider for a user configuration.
type ProviderFactory interface {
	ForUser(userCfg *config.UserConfig) (provider.Provider, error)
}

// TitleResolver matches recommendations against the metadata service.
type TitleResolver interface {
	Resolve(ctx context.Context, contentType models.ContentType, recs []models.Recommendation) map[string]models.ResolvedItem
}

// WeatherSource provides the optional coarse weather descriptor.
type WeatherSource interface {
	Describe(ctx context.Context, loc *config.Location) string
}

// Options configures a Generator.
type Options struct {
	Store          cache.Store
	Providers      ProviderFactory
	Resolver       TitleResolver
	RPDB           *metadata.RPDBClient
	Weather        WeatherSource // nil disables the weather signal
	TTL            time.Duration
	FailureBackoff time.Duration
}

// Generator runs the catalog pipeline. Safe for concurrent use.
type Generator struct {
	store          cache.Store
	providers      ProviderFactory
	resolver       TitleResolver
	rpdb           *metadata.RPDBClient
	weather        WeatherSource
	ttl            time.Duration
	failureBackoff time.Duration

	group singleflight.Group

	// failures is the negative cache: key -> last failure time. It
	// bounds retry amplification while an upstream is down.
	failuresMu sync.Mutex
	failures   map[string]time.Time

	now func() time.Time
}

// NewGenerator wires the pipeline.
func NewGenerator(opts Options) *Generator {
	return &Generator{
		store:          opts.Store,
		providers:      opts.Providers,
		resolver:       opts.Resolver,
		rpdb:           opts.RPDB,
		weather:        opts.Weather,
		ttl:            opts.TTL,
		failureBackoff: opts.FailureBackoff,
		failures:       make(map[string]time.Time),
		now:            time.Now,
	}
}

// Generate returns the catalog for one user, content type, and catalog
// variant. It always returns a well-formed catalog.
func (g *Generator) Generate(ctx context.Context, userCfg *config.UserConfig, contentType models.ContentType, catalogID string) models.Catalog {
	if !contentTypeEnabled(userCfg, contentType) {
		return models.Catalog{Metas: []models.Meta{}}
	}
	variant, ok := VariantByID(catalogID)
	if !ok {
		return models.Catalog{Metas: []models.Meta{}}
	}

	sig := signals.Compute(g.now(), userCfg)
	hash := userCfg.Hash()
	key := cache.Key(hash, string(contentType), variant.ID, sig.TemporalBucket())

	if entry, ok := g.store.Get(ctx, key); ok {
		return entry.Catalog
	}

	if g.inFailureBackoff(key) {
		logging.Ctx(ctx).Debug().Str("key", key).Msg("Generation skipped, key in failure backoff")
		return g.fallback(ctx, key, contentType, errGenerationBackoff)
	}

	ch := g.group.DoChan(key, func() (any, error) {
		// The shared generation must not die with the first caller's
		// deadline; waiters and the cache still want the result.
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()
		return g.generate(genCtx, userCfg, contentType, variant, sig, hash, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return g.fallback(ctx, key, contentType, res.Err)
		}
		if res.Shared {
			metrics.CoalescedRequests.Inc()
		}
		return res.Val.(models.Catalog)
	case <-ctx.Done():
		// Abandon the wait; the in-flight generation completes for the
		// others and lands in the cache.
		return g.fallback(ctx, key, contentType, &provider.Error{Class: provider.ClassTimeout, Err: ctx.Err()})
	}
}

var errGenerationBackoff = errors.New("previous generation failed recently")

// generate is the single-flight body: one upstream call per cache key.
func (g *Generator) generate(ctx context.Context, userCfg *config.UserConfig, contentType models.ContentType, variant Variant, sig signals.Signals, hash, key string) (any, error) {
	start := g.now()

	prov, err := g.providers.ForUser(userCfg)
	if err != nil {
		g.recordFailure(key)
		return nil, err
	}

	// Weather is not part of the cache key, so it is only worth fetching
	// when a catalog is actually generated. Cache hits never reach here.
	if g.weather != nil && userCfg.Location != nil {
		sig.Weather = g.weather.Describe(ctx, userCfg.Location)
	}

	count := userCfg.CatalogSize
	genCount := int(math.Ceil(float64(count) * variant.Overgenerate))

	result, err := prov.GenerateRecommendations(ctx, &provider.GenerateRequest{
		Config:      userCfg,
		Signals:     sig,
		ContentType: contentType,
		Count:       genCount,
		Temperature: variant.Temperature,
	})
	if err != nil {
		g.recordFailure(key)
		return nil, err
	}

	resolved := g.resolver.Resolve(ctx, contentType, result.Recommendations)
	built := g.assemble(userCfg, contentType, count, result.Recommendations, resolved)

	metrics.GenerationDuration.WithLabelValues(prov.Name(), string(contentType)).Observe(g.now().Sub(start).Seconds())
	logging.Ctx(ctx).Info().
		Str("provider", prov.Name()).
		Str("catalog", variant.ID).
		Str("content_type", string(contentType)).
		Int("recommended", len(result.Recommendations)).
		Int("resolved", len(resolved)).
		Int("served", len(built.Metas)).
		Msg("Catalog generated")

	g.clearFailure(key)
	generatedAt := g.now()
	g.store.Set(ctx, key, &cache.Entry{
		Catalog:     built,
		GeneratedAt: generatedAt,
		ExpiresAt:   generatedAt.Add(g.ttl),
		ConfigHash:  hash,
	})

	return built, nil
}

// assemble joins recommendations with their resolved metadata in the
// model's order, drops unresolved titles, and truncates to the requested
// count.
func (g *Generator) assemble(userCfg *config.UserConfig, contentType models.ContentType, count int, recs []models.Recommendation, resolved map[string]models.ResolvedItem) models.Catalog {
	metas := make([]models.Meta, 0, count)
	for _, rec := range recs {
		if len(metas) >= count {
			break
		}
		item, ok := resolved[metadata.ResolveKey(rec.Title, rec.Year)]
		if !ok {
			continue
		}

		meta := models.Meta{
			ID:          item.ExternalID,
			Type:        string(contentType),
			Name:        rec.Title,
			Poster:      item.PosterURL,
			ReleaseInfo: strconv.Itoa(rec.Year),
		}
		if g.rpdb != nil {
			meta.Poster = g.rpdb.PosterURL(userCfg.RPDBKey, item.ExternalID, item.PosterURL)
		}
		if userCfg.ShowExplanations {
			meta.Description = rec.Reason
		}
		metas = append(metas, meta)
	}
	return models.Catalog{Metas: metas}
}

// fallback serves a stale entry as-is when one exists, otherwise a
// single-item placeholder naming the failure.
func (g *Generator) fallback(ctx context.Context, key string, contentType models.ContentType, genErr error) models.Catalog {
	// The caller's context may already be cancelled (abandoned wait); the
	// stale read against a remote backend still has to go through.
	staleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if entry, ok := g.store.GetStale(staleCtx, key); ok {
		metrics.CacheStaleServes.Inc()
		logging.Ctx(ctx).Warn().
			Err(genErr).
			Time("generated_at", entry.GeneratedAt).
			Msg("Generation failed, serving stale catalog")
		return entry.Catalog
	}
	return placeholderCatalog(contentType, genErr)
}

// placeholderCatalog renders the failure as a single catalog item so
// video clients, which ignore HTTP errors, still show the user what
// happened.
func placeholderCatalog(contentType models.ContentType, genErr error) models.Catalog {
	name := "Service Unavailable"
	description := "Recommendations are temporarily unavailable. Please try again later."

	switch Classify(genErr) {
	case provider.ClassRateLimit, provider.ClassQuota:
		name = "Rate Limited"
		description = "Your AI provider is rate limiting requests. Catalogs will recover automatically."
	case provider.ClassAuth:
		name = "Invalid API Key"
		description = "Your AI provider rejected the configured API key. Reconfigure the addon with a valid key."
	case provider.ClassNetwork:
		name = "Connection Error"
		description = "Could not reach your AI provider. Check connectivity and try again."
	case provider.ClassTimeout:
		name = "Timeout"
		description = "Your AI provider took too long to respond. Try again shortly."
	}

	return models.Catalog{Metas: []models.Meta{{
		ID:          "reelsmith:status",
		Type:        string(contentType),
		Name:        name,
		Description: description,
	}}}
}

// Classify handles the breaker rejection sentinel before deferring to
// the provider taxonomy.
func Classify(err error) provider.Class {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return provider.ClassServer
	}
	return provider.Classify(err)
}

func contentTypeEnabled(userCfg *config.UserConfig, contentType models.ContentType) bool {
	switch contentType {
	case models.ContentTypeMovie:
		return userCfg.EnableMovies
	case models.ContentTypeSeries:
		return userCfg.EnableSeries
	default:
		return false
	}
}

func (g *Generator) inFailureBackoff(key string) bool {
	if g.failureBackoff <= 0 {
		return false
	}
	g.failuresMu.Lock()
	defer g.failuresMu.Unlock()

	last, ok := g.failures[key]
	if !ok {
		return false
	}
	if g.now().Sub(last) > g.failureBackoff {
		delete(g.failures, key)
		return false
	}
	return true
}

func (g *Generator) recordFailure(key string) {
	g.failuresMu.Lock()
	g.failures[key] = g.now()
	g.failuresMu.Unlock()
}

func (g *Generator) clearFailure(key string) {
	g.failuresMu.Lock()
	delete(g.failures, key)
	g.failuresMu.Unlock()
}

// SweepFailures drops expired negative-cache entries; wired to the
// janitor alongside the store sweep.
func (g *Generator) SweepFailures() {
	cutoff := g.now().Add(-g.failureBackoff)
	g.failuresMu.Lock()
	for key, last := range g.failures {
		if last.Before(cutoff) {
			delete(g.failures, key)
		}
	}
	g.failuresMu.Unlock()
}

