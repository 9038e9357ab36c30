// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package config

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/validation"
)

// UserConfig is the per-user configuration carried inside the opaque token.
// It is decoded once per request and never mutated afterwards; the request
// that decoded it is its sole owner.
type UserConfig struct {
	// Provider selects the AI backend variant.
	Provider string `json:"provider" validate:"required,oneof=openai groq deepseek openrouter gemini"`

	// Model is the provider model identifier; empty means the provider default.
	Model string `json:"model,omitempty"`

	// APIKey is the user's upstream provider API key.
	APIKey string `json:"api_key" validate:"required,min=8"`

	// EnableMovies / EnableSeries toggle the two catalog surfaces.
	EnableMovies bool `json:"enable_movies"`
	EnableSeries bool `json:"enable_series"`

	// Genres narrows recommendations to the listed genres (empty = any).
	Genres []string `json:"genres,omitempty"`

	// MaxRating is the most permissive content rating allowed (e.g. "PG-13").
	MaxRating string `json:"max_rating,omitempty"`

	// CatalogSize is the requested number of items per catalog.
	CatalogSize int `json:"catalog_size" validate:"gte=1,lte=50"`

	// DiscoveryBias skews toward lesser-known titles (0..1).
	DiscoveryBias float64 `json:"discovery_bias" validate:"gte=0,lte=1"`

	// PopularityBias skews toward widely-known titles (0..1).
	PopularityBias float64 `json:"popularity_bias" validate:"gte=0,lte=1"`

	// ShowExplanations attaches the model's reasons to catalog entries.
	ShowExplanations bool `json:"show_explanations"`

	// RPDBKey enables rating-poster enhancement when present.
	RPDBKey string `json:"rpdb_key,omitempty"`

	// EnableWebSearch asks providers that support it to ground output in
	// live search results.
	EnableWebSearch bool `json:"enable_web_search"`

	// Location enables location-aware signals (season, weather).
	Location *Location `json:"location,omitempty"`
}

// Location is an optional coarse user location.
type Location struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lon" validate:"gte=-180,lte=180"`
	City      string  `json:"city,omitempty"`
}

// Validate checks the user configuration after decode.
func (u *UserConfig) Validate() error {
	if verr := validation.ValidateStruct(u); verr != nil {
		return verr
	}
	return nil
}

// Hash returns a stable hex digest of the configuration. It is the anchor
// for cache keys and must be computed identically on read and write; struct
// field order keeps the JSON canonical.
func (u *UserConfig) Hash() string {
	data, err := json.Marshal(u)
	if err != nil {
		// Marshal of a plain struct cannot fail in practice; fall back to
		// an empty digest rather than panicking in the request path.
		data = nil
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
