// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package metadata resolves model-suggested titles against the Cinemeta
// catalog service and enhances poster artwork through RPDB. Resolution
// is best-effort per title: an unresolved title is dropped from the
// final catalog, never an error.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/models"
)

const maxErrorBodySize = 64 * 1024

// CinemetaClient queries the Stremio Cinemeta addon for title metadata.
type CinemetaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCinemetaClient creates a client for the given Cinemeta endpoint.
func NewCinemetaClient(baseURL string, timeout time.Duration) *CinemetaClient {
	return &CinemetaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// searchMeta is Cinemeta's catalog entry shape.
type searchMeta struct {
	ID          string `json:"id"`
	IMDBID      string `json:"imdb_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Poster      string `json:"poster"`
	ReleaseInfo string `json:"releaseInfo"`
	Description string `json:"description"`
}

type searchResponse struct {
	Metas []searchMeta `json:"metas"`
}

// Search queries the Cinemeta search catalog for the given title.
func (c *CinemetaClient) Search(ctx context.Context, contentType models.ContentType, query string) ([]searchMeta, error) {
	endpoint := fmt.Sprintf("%s/catalog/%s/top/search=%s.json", c.baseURL, contentType, url.PathEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building cinemeta request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cinemeta search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("cinemeta returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding cinemeta response: %w", err)
	}
	return decoded.Metas, nil
}
