// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package api wires the HTTP surface: the Stremio addon protocol routes
// (manifest and catalog, which always answer 200 with protocol shapes)
// and the management /api/v1 endpoints using the standard response
// envelope.
package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/middleware"
	"github.com/reelsmith/reelsmith/internal/models"
)

// writeJSON writes any payload as JSON with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}

// writeSuccess writes an APIResponse envelope with data.
func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, models.APIResponse{
		Success: true,
		Data:    data,
		Meta: &models.APIMeta{
			RequestID: middleware.GetRequestID(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}

// writeError writes an APIResponse error envelope.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, r, status, models.APIResponse{
		Success: false,
		Error: &models.APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

// writeCatalog writes the raw Stremio catalog shape, always 200. Clients
// of the catalog protocol treat any non-200 as a silent empty row, so
// failures are expressed inside the catalog instead.
func writeCatalog(w http.ResponseWriter, r *http.Request, catalog models.Catalog) {
	if catalog.Metas == nil {
		catalog.Metas = []models.Meta{}
	}
	writeJSON(w, r, http.StatusOK, catalog)
}
