// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/catalog"
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/models"
	"github.com/reelsmith/reelsmith/internal/provider"
	"github.com/reelsmith/reelsmith/internal/validation"
)

// CatalogSource generates catalogs; satisfied by catalog.Generator.
type CatalogSource interface {
	Generate(ctx context.Context, userCfg *config.UserConfig, contentType models.ContentType, catalogID string) models.Catalog
}

// ProviderFactory builds providers for key validation.
type ProviderFactory interface {
	ForUser(userCfg *config.UserConfig) (provider.Provider, error)
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	codec           *config.TokenCodec
	catalogs        CatalogSource
	providers       ProviderFactory
	requestTimeout  time.Duration
	validateTimeout time.Duration
}

// NewServer creates the handler set.
func NewServer(codec *config.TokenCodec, catalogs CatalogSource, providers ProviderFactory, requestTimeout time.Duration) *Server {
	return &Server{
		codec:           codec,
		catalogs:        catalogs,
		providers:       providers,
		requestTimeout:  requestTimeout,
		validateTimeout: 15 * time.Second,
	}
}

// handleManifest serves the unconfigured manifest advertising every
// catalog surface.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, catalog.BuildManifest(nil))
}

// handleUserManifest serves the manifest scoped to a user's enabled
// content types. An undecodable token falls back to the unconfigured
// manifest rather than an error; clients poll this endpoint.
func (s *Server) handleUserManifest(w http.ResponseWriter, r *http.Request) {
	userCfg, err := s.codec.DecodeUserConfig(chi.URLParam(r, "token"))
	if err != nil {
		logging.Ctx(r.Context()).Warn().Msg("Manifest requested with invalid token")
		writeJSON(w, r, http.StatusOK, catalog.BuildManifest(nil))
		return
	}
	writeJSON(w, r, http.StatusOK, catalog.BuildManifest(userCfg))
}

// handleCatalog is the main addon surface. It always answers 200 with a
// catalog shape; every failure mode is expressed inside the catalog.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	contentType := models.ContentType(chi.URLParam(r, "contentType"))
	catalogID := strings.TrimSuffix(chi.URLParam(r, "catalogID"), ".json")

	if !contentType.Valid() {
		writeCatalog(w, r, models.Catalog{})
		return
	}

	userCfg, err := s.codec.DecodeUserConfig(chi.URLParam(r, "token"))
	if err != nil {
		logging.Ctx(r.Context()).Warn().Msg("Catalog requested with invalid token")
		writeCatalog(w, r, invalidConfigCatalog(contentType))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	writeCatalog(w, r, s.catalogs.Generate(ctx, userCfg, contentType, catalogID))
}

// invalidConfigCatalog is the placeholder for tokens that fail to
// decode. Raw decode errors never reach the client.
func invalidConfigCatalog(contentType models.ContentType) models.Catalog {
	return models.Catalog{Metas: []models.Meta{{
		ID:          "reelsmith:status",
		Type:        string(contentType),
		Name:        "Invalid Configuration",
		Description: "This addon link is invalid or was created with a different server secret. Reinstall the addon from the configuration page.",
	}}}
}

// handleValidate checks a posted user configuration against its
// provider: structural validation first, then a live API-key check.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	userCfg, ok := s.decodeUserConfig(w, r)
	if !ok {
		return
	}

	result := s.validateKey(r.Context(), userCfg)
	writeSuccess(w, r, http.StatusOK, result)
}

// handleConfigure validates a posted configuration and, when the key
// checks out, mints the opaque addon token.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	userCfg, ok := s.decodeUserConfig(w, r)
	if !ok {
		return
	}

	result := s.validateKey(r.Context(), userCfg)
	if !result.Valid {
		writeSuccess(w, r, http.StatusOK, result)
		return
	}

	token, err := s.codec.EncodeUserConfig(userCfg)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Token encoding failed")
		writeError(w, r, http.StatusInternalServerError, "TOKEN_ERROR", "Could not create the addon token", nil)
		return
	}

	writeSuccess(w, r, http.StatusOK, struct {
		models.KeyValidationResult
		Token string `json:"token"`
	}{KeyValidationResult: result, Token: token})
}

func (s *Server) decodeUserConfig(w http.ResponseWriter, r *http.Request) (*config.UserConfig, bool) {
	var userCfg config.UserConfig
	if err := json.NewDecoder(r.Body).Decode(&userCfg); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", nil)
		return nil, false
	}

	if verr := validation.ValidateStruct(&userCfg); verr != nil {
		apiErr := verr.ToAPIError()
		writeError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return nil, false
	}
	return &userCfg, true
}

func (s *Server) validateKey(ctx context.Context, userCfg *config.UserConfig) models.KeyValidationResult {
	result := models.KeyValidationResult{Provider: userCfg.Provider}

	prov, err := s.providers.ForUser(userCfg)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.validateTimeout)
	defer cancel()

	if err := prov.ValidateKey(checkCtx); err != nil {
		result.Error = validationMessage(err)
		return result
	}
	result.Valid = true
	return result
}

// validationMessage maps the provider error taxonomy to user-facing
// text without leaking upstream internals.
func validationMessage(err error) string {
	switch provider.Classify(err) {
	case provider.ClassAuth:
		return "The provider rejected this API key."
	case provider.ClassRateLimit, provider.ClassQuota:
		return "The provider is rate limiting this key; it may still be valid."
	case provider.ClassNetwork, provider.ClassTimeout:
		return "Could not reach the provider to verify the key."
	default:
		return "Key verification failed."
	}
}

// handleHealthLive answers as long as the process serves requests.
func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthReady reports readiness; generation degrades gracefully,
// so readiness matches liveness unless the handler set is incomplete.
func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	if s.codec == nil || s.catalogs == nil {
		writeError(w, r, http.StatusServiceUnavailable, "NOT_READY", "Server is still starting", nil)
		return
	}
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
