// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/models"
)

func searchHandler(t *testing.T, byQuery map[string][]searchMeta) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		// Path shape: /catalog/{type}/top/search={query}.json
		parts := strings.Split(strings.TrimSuffix(r.URL.Path, ".json"), "search=")
		if len(parts) != 2 {
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{Metas: byQuery[parts[1]]})
	}
}

func newTestResolver(t *testing.T, handler http.Handler) *Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewResolver(NewCinemetaClient(server.URL, 5*time.Second), 4)
}

func TestResolveExactMatch(t *testing.T) {
	resolver := newTestResolver(t, searchHandler(t, map[string][]searchMeta{
		"Heat": {
			{ID: "tt0113277", IMDBID: "tt0113277", Type: "movie", Name: "Heat", Poster: "https://img/heat.jpg", ReleaseInfo: "1995"},
			{ID: "tt9999999", Type: "movie", Name: "Heat Wave", ReleaseInfo: "1995"},
		},
	}))

	recs := []models.Recommendation{{Title: "Heat", Year: 1995}}
	resolved := resolver.Resolve(context.Background(), models.ContentTypeMovie, recs)

	item, ok := resolved[ResolveKey("Heat", 1995)]
	if !ok {
		t.Fatal("Heat did not resolve")
	}
	if item.ExternalID != "tt0113277" {
		t.Errorf("ExternalID = %q, want tt0113277", item.ExternalID)
	}
	if item.PosterURL != "https://img/heat.jpg" {
		t.Errorf("PosterURL = %q", item.PosterURL)
	}
}

func TestResolveYearTolerance(t *testing.T) {
	resolver := newTestResolver(t, searchHandler(t, map[string][]searchMeta{
		"Parasite": {
			{ID: "tt6751668", IMDBID: "tt6751668", Type: "movie", Name: "Parasite", ReleaseInfo: "2019"},
		},
	}))

	// Model said 2020, Cinemeta says 2019: inside the ±1 window.
	recs := []models.Recommendation{{Title: "Parasite", Year: 2020}}
	resolved := resolver.Resolve(context.Background(), models.ContentTypeMovie, recs)
	if _, ok := resolved[ResolveKey("Parasite", 2020)]; !ok {
		t.Error("year off by one should still resolve")
	}

	// Two years off is a different film.
	recs = []models.Recommendation{{Title: "Parasite", Year: 2022}}
	resolved = resolver.Resolve(context.Background(), models.ContentTypeMovie, recs)
	if len(resolved) != 0 {
		t.Error("year off by two resolved, want unresolved")
	}
}

func TestResolveContentTypeMismatchIsHardFilter(t *testing.T) {
	resolver := newTestResolver(t, searchHandler(t, map[string][]searchMeta{
		"Fargo": {
			{ID: "tt2802850", IMDBID: "tt2802850", Type: "series", Name: "Fargo", ReleaseInfo: "2014"},
		},
	}))

	recs := []models.Recommendation{{Title: "Fargo", Year: 2014}}
	resolved := resolver.Resolve(context.Background(), models.ContentTypeMovie, recs)
	if len(resolved) != 0 {
		t.Error("series result resolved for a movie request, want hard filter")
	}
}

func TestResolveLeadingArticleNormalization(t *testing.T) {
	resolver := newTestResolver(t, searchHandler(t, map[string][]searchMeta{
		"Matrix": {
			{ID: "tt0133093", IMDBID: "tt0133093", Type: "movie", Name: "The Matrix", ReleaseInfo: "1999"},
		},
	}))

	recs := []models.Recommendation{{Title: "Matrix", Year: 1999}}
	resolved := resolver.Resolve(context.Background(), models.ContentTypeMovie, recs)
	if _, ok := resolved[ResolveKey("Matrix", 1999)]; !ok {
		t.Error("article-stripped title should match")
	}
}

func TestResolveWholeBatchFailureYieldsEmptyMap(t *testing.T) {
	resolver := newTestResolver(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	recs := []models.Recommendation{
		{Title: "Heat", Year: 1995},
		{Title: "Drive", Year: 2011},
	}
	resolved := resolver.Resolve(context.Background(), models.ContentTypeMovie, recs)
	if len(resolved) != 0 {
		t.Errorf("resolved = %+v, want empty on collaborator outage", resolved)
	}
}

func TestResolveBoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"metas":[]}`))
	}))
	t.Cleanup(server.Close)

	resolver := NewResolver(NewCinemetaClient(server.URL, 5*time.Second), 2)
	recs := make([]models.Recommendation, 10)
	for i := range recs {
		recs[i] = models.Recommendation{Title: "Title", Year: 2000 + i}
	}
	resolver.Resolve(context.Background(), models.ContentTypeMovie, recs)

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestYearWithinTolerance(t *testing.T) {
	tests := []struct {
		want        int
		releaseInfo string
		ok          bool
	}{
		{1999, "1999", true},
		{1999, "2000", true},
		{1999, "1998", true},
		{1999, "2001", false},
		{2015, "2015-2019", true},
		{2015, "2017-2019", false},
		{1999, "", true},    // missing info is not a reject
		{1999, "tba", true}, // unparseable is not a reject
	}

	for _, tt := range tests {
		if got := yearWithinTolerance(tt.want, tt.releaseInfo); got != tt.ok {
			t.Errorf("yearWithinTolerance(%d, %q) = %v, want %v", tt.want, tt.releaseInfo, got, tt.ok)
		}
	}
}

func TestRPDBPosterURL(t *testing.T) {
	client := NewRPDBClient("https://api.ratingposterdb.com")

	got := client.PosterURL("t0-free-key", "tt0133093", "https://img/original.jpg")
	want := "https://api.ratingposterdb.com/t0-free-key/imdb/poster-default/tt0133093.jpg"
	if got != want {
		t.Errorf("PosterURL = %q, want %q", got, want)
	}

	if got := client.PosterURL("", "tt0133093", "fallback"); got != "fallback" {
		t.Errorf("PosterURL without key = %q, want fallback", got)
	}
	if got := client.PosterURL("t0-free-key", "kitsu:123", "fallback"); got != "fallback" {
		t.Errorf("PosterURL for non-imdb id = %q, want fallback", got)
	}
}
