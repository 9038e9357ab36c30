// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package metadata

import (
	"fmt"
	"strings"
)

// RPDBClient rewrites poster URLs to RatingPosterDB when the user
// carries an RPDB key. Pure URL construction; RPDB serves the image
// directly to the player, so no round trip happens at request time.
type RPDBClient struct {
	baseURL string
}

// NewRPDBClient creates a poster URL builder for the given RPDB endpoint.
func NewRPDBClient(baseURL string) *RPDBClient {
	return &RPDBClient{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// PosterURL returns the RPDB poster URL for an IMDb-style id, or the
// fallback when no key is set or the id is not an IMDb id.
func (r *RPDBClient) PosterURL(rpdbKey, externalID, fallback string) string {
	if rpdbKey == "" || !strings.HasPrefix(externalID, "tt") {
		return fallback
	}
	return fmt.Sprintf("%s/%s/imdb/poster-default/%s.jpg", r.baseURL, rpdbKey, externalID)
}
