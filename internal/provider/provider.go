// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package provider adapts the supported AI providers behind one
// capability interface. Each variant composes the same resilience stack:
// a per-provider rate limiter, then a circuit breaker wrapping the whole
// retry sequence so one logical call counts once against the breaker.
package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/models"
	"github.com/reelsmith/reelsmith/internal/signals"
)

// Provider generates recommendations for one configured upstream.
type Provider interface {
	// Name returns the provider identifier (openai, groq, ...).
	Name() string

	// GenerateRecommendations asks the model for an ordered list of
	// titles matching the request. The result is already validated and
	// deduplicated.
	GenerateRecommendations(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// ValidateKey performs a cheap authenticated call to verify the
	// user's API key.
	ValidateKey(ctx context.Context) error
}

// GenerateRequest describes one catalog generation.
type GenerateRequest struct {
	Config      *config.UserConfig
	Signals     signals.Signals
	ContentType models.ContentType
	Count       int

	// Temperature overrides the default sampling temperature when > 0.
	// The discover catalog variant runs hotter than the main one.
	Temperature float32
}

// GenerateResult is the ordered, validated provider output.
type GenerateResult struct {
	Recommendations []models.Recommendation
	Metadata        models.GenerationMetadata
}

// recommendationList is the structured-output envelope every provider
// variant instructs the model to emit.
type recommendationList struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

// recommendationSchema is the JSON schema for structured output. Both
// the OpenAI-compatible json_schema response format and Gemini's
// responseSchema accept this shape.
const recommendationSchema = `{
  "type": "object",
  "properties": {
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "year": {"type": "integer"},
          "reason": {"type": "string"}
        },
        "required": ["title", "year", "reason"],
        "additionalProperties": false
      }
    }
  },
  "required": ["recommendations"],
  "additionalProperties": false
}`

const systemPrompt = "You are a film and television curator. Respond only with JSON matching the requested schema. Recommend real, released titles only; never invent titles."

// buildPrompt renders the user prompt from configuration and contextual
// signals.
func buildPrompt(req *GenerateRequest) string {
	var b strings.Builder

	noun := "movies"
	if req.ContentType == models.ContentTypeSeries {
		noun = "TV series"
	}
	fmt.Fprintf(&b, "Recommend exactly %d %s.\n", req.Count, noun)

	cfg := req.Config
	if len(cfg.Genres) > 0 {
		fmt.Fprintf(&b, "Preferred genres: %s.\n", strings.Join(cfg.Genres, ", "))
	}
	if cfg.MaxRating != "" {
		fmt.Fprintf(&b, "Nothing rated above %s.\n", cfg.MaxRating)
	}

	switch {
	case cfg.DiscoveryBias >= 0.7:
		b.WriteString("Favor hidden gems and lesser-known titles over obvious picks.\n")
	case cfg.DiscoveryBias <= 0.3:
		b.WriteString("Favor well-known, widely loved titles.\n")
	}
	switch {
	case cfg.PopularityBias >= 0.7:
		b.WriteString("Lean toward recent, currently popular releases.\n")
	case cfg.PopularityBias <= 0.3:
		b.WriteString("Classics and older titles are welcome.\n")
	}

	if parts := req.Signals.Describe(); len(parts) > 0 {
		fmt.Fprintf(&b, "Viewing context: %s.\n", strings.Join(parts, "; "))
	}

	b.WriteString("Return the exact release year for each title and a one-sentence reason.")
	return b.String()
}

// parseRecommendations decodes the model's structured output and applies
// per-item validation. Invalid items are dropped; when nothing survives
// the whole response is a schema-class failure.
func parseRecommendations(providerName string, raw string) ([]models.Recommendation, int, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, 0, classified(providerName, ErrEmptyResponse)
	}

	// Some models wrap JSON in markdown fences despite instructions.
	text = stripCodeFence(text)

	var list recommendationList
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, 0, &Error{
			Class:    ClassSchema,
			Provider: providerName,
			Err:      fmt.Errorf("decoding model output: %w", err),
		}
	}

	valid := make([]models.Recommendation, 0, len(list.Recommendations))
	dropped := 0
	for _, rec := range list.Recommendations {
		rec.Title = strings.TrimSpace(rec.Title)
		if rec.Title == "" || rec.Year < 1900 {
			dropped++
			continue
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return nil, dropped, &Error{
			Class:    ClassSchema,
			Provider: providerName,
			Err:      fmt.Errorf("no valid recommendations in model output (%d dropped)", dropped),
		}
	}
	return valid, dropped, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Dedup removes duplicate recommendations, keeping the first occurrence
// and preserving order. Two items are duplicates when their normalized
// title and year match. Idempotent.
func Dedup(items []models.Recommendation) []models.Recommendation {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.Recommendation, 0, len(items))
	for _, item := range items {
		key := fmt.Sprintf("%s:%d", NormalizeTitle(item.Title), item.Year)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// NormalizeTitle lowercases a title, strips a leading English article,
// and collapses interior whitespace. Shared by dedup and title matching
// so both sides agree on identity.
func NormalizeTitle(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, article) {
			lower = lower[len(article):]
			break
		}
	}
	return strings.Join(strings.FieldsFunc(lower, unicode.IsSpace), " ")
}
