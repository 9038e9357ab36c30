// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package metadata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metrics"
	"github.com/reelsmith/reelsmith/internal/models"
	"github.com/reelsmith/reelsmith/internal/provider"
)

// yearTolerance allows the model's release year to be off by one, which
// happens constantly around festival vs. wide-release dates.
const yearTolerance = 1

// Resolver matches recommendations against Cinemeta concurrently.
type Resolver struct {
	cinemeta      *CinemetaClient
	maxConcurrent int
}

// NewResolver creates a resolver with bounded per-batch concurrency.
func NewResolver(cinemeta *CinemetaClient, maxConcurrent int) *Resolver {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Resolver{cinemeta: cinemeta, maxConcurrent: maxConcurrent}
}

// ResolveKey identifies a recommendation inside a resolution batch. The
// same normalization as dedup, so both layers agree on title identity.
func ResolveKey(title string, year int) string {
	return fmt.Sprintf("%s:%d", provider.NormalizeTitle(title), year)
}

// Resolve looks up every recommendation and returns the successfully
// matched ones keyed by ResolveKey. Missing keys mean the title could
// not be resolved; Resolve itself never fails, a whole-batch collaborator
// outage simply yields an empty map.
func (r *Resolver) Resolve(ctx context.Context, contentType models.ContentType, recs []models.Recommendation) map[string]models.ResolvedItem {
	resolved := make(map[string]models.ResolvedItem, len(recs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)

	for _, rec := range recs {
		g.Go(func() error {
			item, ok := r.resolveOne(gctx, contentType, rec)
			if !ok {
				return nil
			}
			mu.Lock()
			resolved[ResolveKey(rec.Title, rec.Year)] = item
			mu.Unlock()
			return nil
		})
	}
	// Workers only return nil; Wait is for completion, not errors.
	_ = g.Wait()

	return resolved
}

func (r *Resolver) resolveOne(ctx context.Context, contentType models.ContentType, rec models.Recommendation) (models.ResolvedItem, bool) {
	metas, err := r.cinemeta.Search(ctx, contentType, rec.Title)
	if err != nil {
		metrics.ResolveOutcomes.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Debug().Err(err).Str("title", rec.Title).Msg("Title lookup failed")
		return models.ResolvedItem{}, false
	}

	match, ok := bestMatch(contentType, rec, metas)
	if !ok {
		metrics.ResolveOutcomes.WithLabelValues("unresolved").Inc()
		return models.ResolvedItem{}, false
	}

	metrics.ResolveOutcomes.WithLabelValues("resolved").Inc()
	id := match.IMDBID
	if id == "" {
		id = match.ID
	}
	return models.ResolvedItem{
		Recommendation: rec,
		ExternalID:     id,
		ContentType:    contentType,
		PosterURL:      match.Poster,
	}, true
}

// bestMatch scans candidates for the recommendation. Cross-type results
// are discarded outright; among same-type candidates, exact normalized
// title equality wins, then prefix, then substring, each requiring the
// release year within tolerance.
func bestMatch(contentType models.ContentType, rec models.Recommendation, metas []searchMeta) (searchMeta, bool) {
	want := provider.NormalizeTitle(rec.Title)

	type scored struct {
		meta  searchMeta
		score int
	}
	best := scored{score: -1}

	for _, meta := range metas {
		if meta.Type != string(contentType) {
			metrics.ResolveOutcomes.WithLabelValues("type_mismatch").Inc()
			continue
		}
		if !yearWithinTolerance(rec.Year, meta.ReleaseInfo) {
			continue
		}

		got := provider.NormalizeTitle(meta.Name)
		var score int
		switch {
		case got == want:
			score = 3
		case strings.HasPrefix(got, want):
			score = 2
		case strings.Contains(got, want):
			score = 1
		default:
			continue
		}
		if score > best.score {
			best = scored{meta: meta, score: score}
			if score == 3 {
				break
			}
		}
	}

	if best.score < 0 {
		return searchMeta{}, false
	}
	return best.meta, true
}

// yearWithinTolerance parses the leading year of releaseInfo (formats
// like "1999" or "2015-2019") and compares it to the expected year.
func yearWithinTolerance(want int, releaseInfo string) bool {
	releaseInfo = strings.TrimSpace(releaseInfo)
	if len(releaseInfo) < 4 {
		// Cinemeta sometimes omits releaseInfo, give the title the
		// benefit of the doubt rather than dropping it.
		return true
	}
	got, err := strconv.Atoi(releaseInfo[:4])
	if err != nil {
		return true
	}
	diff := want - got
	if diff < 0 {
		diff = -diff
	}
	return diff <= yearTolerance
}
