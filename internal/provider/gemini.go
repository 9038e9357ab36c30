// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metrics"
	"github.com/reelsmith/reelsmith/internal/models"
	"github.com/reelsmith/reelsmith/internal/resilience"
)

// maxErrorBodySize bounds how much of an upstream error body is read.
const maxErrorBodySize = 64 * 1024

// geminiResponseSchema is the OpenAPI-subset schema Gemini accepts for
// constrained decoding. Unlike the OpenAI json_schema format it rejects
// additionalProperties, hence the separate definition.
const geminiResponseSchema = `{
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
        "required": ["title", "year", "reason"]
      }
    }
  },
  "required": ["recommendations"]
}`

// GeminiProvider talks to the Google Generative Language API directly;
// its wire format is not OpenAI-compatible.
type GeminiProvider struct {
	model       string
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	breaker     *resilience.Breaker
	limiter     *rate.Limiter
	retry       resilience.Policy
	callTimeout time.Duration
	webSearch   bool
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  geminiGenConfig  `json:"generationConfig"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float32          `json:"temperature"`
	ResponseMIMEType string           `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage  `json:"responseSchema,omitempty"`
	ThinkingConfig   *geminiThinkConf `json:"thinkingConfig,omitempty"`
}

// geminiThinkConf zeroes the thinking budget; reasoning tokens add
// latency and cost without improving a list of titles.
type geminiThinkConf struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *GeminiProvider) GenerateRecommendations(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, classified(p.Name(), err)
		}
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	body := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: buildPrompt(req)}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:      temperature,
			ResponseMIMEType: "application/json",
			ResponseSchema:   json.RawMessage(geminiResponseSchema),
			ThinkingConfig:   &geminiThinkConf{ThinkingBudget: 0},
		},
	}
	if p.webSearch {
		// Grounding via Google Search is mutually exclusive with a
		// response schema on current API versions, search wins when the
		// user asked for it.
		body.Tools = []map[string]any{{"google_search": map[string]any{}}}
		body.GenerationConfig.ResponseSchema = nil
	}

	retry := p.retry
	retry.OnRetry = func(_ int, _ time.Duration, _ error) {
		metrics.ProviderRetries.WithLabelValues(p.Name()).Inc()
	}

	type parsed struct {
		items   []models.Recommendation
		dropped int
	}

	start := time.Now()
	result, err := resilience.Execute(p.breaker, func() (parsed, error) {
		return resilience.Do(ctx, retry, IsTransient, func(ctx context.Context) (parsed, error) {
			text, err := p.generateContent(ctx, &body)
			if err != nil {
				return parsed{}, err
			}
			items, dropped, err := parseRecommendations(p.Name(), text)
			if err != nil {
				return parsed{}, err
			}
			return parsed{items: items, dropped: dropped}, nil
		})
	})
	if err != nil {
		outcome := "failure"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			outcome = "rejected"
		}
		metrics.ProviderRequests.WithLabelValues(p.Name(), outcome).Inc()
		metrics.ProviderErrors.WithLabelValues(p.Name(), Classify(err).String()).Inc()
		return nil, classified(p.Name(), err)
	}

	metrics.ProviderRequests.WithLabelValues(p.Name(), "success").Inc()
	items := Dedup(result.items)
	logging.Ctx(ctx).Debug().
		Str("provider", p.Name()).
		Str("model", p.model).
		Int("items", len(items)).
		Int("dropped", result.dropped).
		Dur("duration", time.Since(start)).
		Msg("Generation completed")

	return &GenerateResult{
		Recommendations: items,
		Metadata: models.GenerationMetadata{
			Provider:     p.Name(),
			Model:        p.model,
			UsedSearch:   p.webSearch,
			GeneratedAt:  time.Now().UTC(),
			ItemsDropped: result.dropped,
		},
	}, nil
}

// generateContent performs one generateContent round trip and extracts
// the candidate text.
func (p *GeminiProvider) generateContent(ctx context.Context, body *geminiRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, p.model)

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", classified(p.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", p.errorFromResponse(resp)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &Error{Class: ClassSchema, Provider: p.Name(), Err: fmt.Errorf("decoding gemini response: %w", err)}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", classified(p.Name(), ErrEmptyResponse)
	}

	var text string
	for _, part := range decoded.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

// errorFromResponse reads a bounded slice of the error body and maps it
// to the shared failure taxonomy.
func (p *GeminiProvider) errorFromResponse(resp *http.Response) error {
	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	message := ""
	if readErr == nil {
		var eb geminiErrorBody
		if err := json.Unmarshal(bodyBytes, &eb); err == nil {
			message = eb.Error.Message
		}
	}
	return &Error{
		Class:    classifyStatus(resp.StatusCode, message),
		Provider: p.Name(),
		Err:      fmt.Errorf("gemini returned HTTP %d: %s", resp.StatusCode, firstLine(message)),
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// ValidateKey lists models, which requires a valid API key but no quota.
func (p *GeminiProvider) ValidateKey(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodGet, p.baseURL+"/v1beta/models", nil)
	if err != nil {
		return fmt.Errorf("building gemini request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return classified(p.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return p.errorFromResponse(resp)
	}
	return nil
}
