// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package catalog

import (
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/models"
)

// ManifestVersion is the addon version advertised to clients.
const ManifestVersion = "1.0.0"

// Variant maps a catalog id to its generation parameters. Variants
// share the cache layer; only prompt temperature and over-generation
// differ.
type Variant struct {
	// ID is the catalog id in manifest and catalog routes.
	ID string

	// Name is the human-readable catalog name.
	Name string

	// Overgenerate asks the model for more items than requested so
	// dedup and resolution losses still fill the catalog.
	Overgenerate float64

	// Temperature overrides the sampling temperature (0 = provider default).
	Temperature float32
}

var variants = []Variant{
	{
		ID:           "reelsmith-main",
		Name:         "AI Picks",
		Overgenerate: 1.5,
	},
	{
		ID:           "reelsmith-discover",
		Name:         "AI Discovery",
		Overgenerate: 2.0,
		Temperature:  1.1,
	},
}

// VariantByID returns the variant for a catalog id.
func VariantByID(id string) (Variant, bool) {
	for _, v := range variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// BuildManifest renders the addon manifest for a user's configuration.
// Passing nil yields the unconfigured manifest advertising every surface.
func BuildManifest(userCfg *config.UserConfig) models.Manifest {
	var types []string
	if userCfg == nil || userCfg.EnableMovies {
		types = append(types, string(models.ContentTypeMovie))
	}
	if userCfg == nil || userCfg.EnableSeries {
		types = append(types, string(models.ContentTypeSeries))
	}

	catalogs := make([]models.ManifestCatalog, 0, len(types)*len(variants))
	for _, contentType := range types {
		for _, v := range variants {
			catalogs = append(catalogs, models.ManifestCatalog{
				Type: contentType,
				ID:   v.ID,
				Name: v.Name,
			})
		}
	}

	return models.Manifest{
		ID:          "com.reelsmith.catalog",
		Version:     ManifestVersion,
		Name:        "Reelsmith",
		Description: "AI-powered movie and series recommendations that follow your taste, time of day, and season.",
		Resources:   []string{"catalog"},
		Types:       types,
		Catalogs:    catalogs,
		IDPrefixes:  []string{"tt"},
	}
}
