// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package models defines the domain types shared across Reelsmith:
// recommendations, resolved catalog items, and the Stremio-facing
// catalog response shapes.
package models

import "time"

// ContentType is the domain distinction between movie and series catalogs.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// Valid reports whether the content type is one of the known values.
func (t ContentType) Valid() bool {
	return t == ContentTypeMovie || t == ContentTypeSeries
}

// Recommendation is a single AI-provider output item after schema validation.
// Anything failing validation is dropped at the provider layer, not retried.
type Recommendation struct {
	// Title is the recommended title as returned by the model.
	Title string `json:"title"`

	// Year is the release year. Validation requires >= 1900.
	Year int `json:"year"`

	// Reason is optional free-text explaining the recommendation.
	Reason string `json:"reason,omitempty"`
}

// ResolvedItem is a Recommendation joined with external metadata.
// Produced only for recommendations that successfully resolve; unresolved
// ones are silently excluded from the final catalog.
type ResolvedItem struct {
	Recommendation

	// ExternalID is the metadata service identifier (IMDb-style id).
	ExternalID string `json:"external_id"`

	// ContentType is the confirmed type from the metadata service.
	ContentType ContentType `json:"content_type"`

	// PosterURL is the artwork URL, possibly rewritten by poster enhancement.
	PosterURL string `json:"poster_url,omitempty"`
}

// Meta is a single catalog entry in the Stremio addon protocol shape.
type Meta struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Poster      string `json:"poster,omitempty"`
	Description string `json:"description,omitempty"`
	ReleaseInfo string `json:"releaseInfo,omitempty"`
}

// Catalog is the final ordered list returned to the client. Ordering is
// owned by the upstream model; the gateway never re-sorts.
type Catalog struct {
	Metas []Meta `json:"metas"`
}

// GenerationMetadata describes which backend served a generation.
type GenerationMetadata struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	UsedSearch   bool      `json:"used_search"`
	GeneratedAt  time.Time `json:"generated_at"`
	ItemsDropped int       `json:"items_dropped,omitempty"`
}

// Manifest is the Stremio addon manifest.
type Manifest struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Resources   []string          `json:"resources"`
	Types       []string          `json:"types"`
	Catalogs    []ManifestCatalog `json:"catalogs"`
	IDPrefixes  []string          `json:"idPrefixes,omitempty"`
}

// ManifestCatalog declares one catalog surface in the manifest.
type ManifestCatalog struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}
