// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package provider

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metrics"
	"github.com/reelsmith/reelsmith/internal/models"
	"github.com/reelsmith/reelsmith/internal/resilience"
)

const defaultTemperature = 0.8

// OpenAIProvider serves the OpenAI-compatible family: openai, groq,
// deepseek, and openrouter, differing only in base URL and model naming.
type OpenAIProvider struct {
	name        string
	model       string
	client      *openai.Client
	breaker     *resilience.Breaker
	limiter     *rate.Limiter
	retry       resilience.Policy
	callTimeout time.Duration
	webSearch   bool
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) GenerateRecommendations(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, classified(p.name, err)
		}
	}

	model := p.model
	if p.name == "openrouter" && p.webSearch {
		// OpenRouter enables web grounding via the :online model suffix.
		model += ":online"
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "recommendations",
				Schema: json.RawMessage(recommendationSchema),
				Strict: true,
			},
		},
	}

	retry := p.retry
	retry.OnRetry = func(_ int, _ time.Duration, _ error) {
		metrics.ProviderRetries.WithLabelValues(p.name).Inc()
	}

	type parsed struct {
		items   []models.Recommendation
		dropped int
	}

	start := time.Now()
	result, err := resilience.Execute(p.breaker, func() (parsed, error) {
		return resilience.Do(ctx, retry, IsTransient, func(ctx context.Context) (parsed, error) {
			callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
			defer cancel()

			resp, err := p.client.CreateChatCompletion(callCtx, chatReq)
			if err != nil {
				return parsed{}, classified(p.name, err)
			}
			if len(resp.Choices) == 0 {
				return parsed{}, classified(p.name, ErrEmptyResponse)
			}
			items, dropped, err := parseRecommendations(p.name, resp.Choices[0].Message.Content)
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
		metrics.ProviderRequests.WithLabelValues(p.name, outcome).Inc()
		metrics.ProviderErrors.WithLabelValues(p.name, Classify(err).String()).Inc()
		return nil, classified(p.name, err)
	}

	metrics.ProviderRequests.WithLabelValues(p.name, "success").Inc()
	items := Dedup(result.items)
	logging.Ctx(ctx).Debug().
		Str("provider", p.name).
		Str("model", model).
		Int("items", len(items)).
		Int("dropped", result.dropped).
		Dur("duration", time.Since(start)).
		Msg("Generation completed")

	return &GenerateResult{
		Recommendations: items,
		Metadata: models.GenerationMetadata{
			Provider:     p.name,
			Model:        model,
			UsedSearch:   p.name == "openrouter" && p.webSearch,
			GeneratedAt:  time.Now().UTC(),
			ItemsDropped: result.dropped,
		},
	}, nil
}

// ValidateKey lists models, the cheapest authenticated call the
// OpenAI-compatible providers all support.
func (p *OpenAIProvider) ValidateKey(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	if _, err := p.client.ListModels(callCtx); err != nil {
		return classified(p.name, err)
	}
	return nil
}
