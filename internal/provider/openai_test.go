// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/models"
	"github.com/reelsmith/reelsmith/internal/resilience"
)

func testUserConfig() *config.UserConfig {
	return &config.UserConfig{
		Provider:     "openai",
		APIKey:       "sk-test-key-12345",
		EnableMovies: true,
		CatalogSize:  20,
	}
}

func fastRetry() resilience.Policy {
	return resilience.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

// newTestOpenAIProvider points an OpenAIProvider at an httptest server.
func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clientCfg := openai.DefaultConfig("sk-test-key-12345")
	clientCfg.BaseURL = server.URL + "/v1"

	return &OpenAIProvider{
		name:        "openai",
		model:       "gpt-4o-mini",
		client:      openai.NewClientWithConfig(clientCfg),
		breaker:     resilience.NewBreaker(resilience.BreakerConfig{Name: "test-openai-" + t.Name(), FailureThreshold: 5, Cooldown: time.Minute}),
		retry:       fastRetry(),
		callTimeout: 5 * time.Second,
	}
}

func chatCompletionBody(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	})
	return body
}

func TestOpenAIGenerateRecommendations(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-key-12345" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		rf, _ := req["response_format"].(map[string]any)
		if rf == nil || rf["type"] != "json_schema" {
			t.Errorf("request missing json_schema response format: %v", req["response_format"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletionBody(`{"recommendations":[
			{"title":"Blade Runner","year":1982,"reason":"neo-noir"},
			{"title":"The Blade Runner","year":1982,"reason":"duplicate"},
			{"title":"Arrival","year":2016,"reason":"cerebral"}
		]}`))
	})

	result, err := p.GenerateRecommendations(context.Background(), &GenerateRequest{
		Config:      testUserConfig(),
		ContentType: models.ContentTypeMovie,
		Count:       3,
	})
	if err != nil {
		t.Fatalf("GenerateRecommendations failed: %v", err)
	}
	if len(result.Recommendations) != 2 {
		t.Fatalf("got %d recommendations after dedup, want 2: %+v", len(result.Recommendations), result.Recommendations)
	}
	if result.Recommendations[0].Title != "Blade Runner" || result.Recommendations[1].Title != "Arrival" {
		t.Errorf("ordering broken: %+v", result.Recommendations)
	}
	if result.Metadata.Provider != "openai" || result.Metadata.Model != "gpt-4o-mini" {
		t.Errorf("metadata = %+v", result.Metadata)
	}
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletionBody(`{"recommendations":[{"title":"Heat","year":1995,"reason":"ok"}]}`))
	})

	result, err := p.GenerateRecommendations(context.Background(), &GenerateRequest{
		Config:      testUserConfig(),
		ContentType: models.ContentTypeMovie,
		Count:       1,
	})
	if err != nil {
		t.Fatalf("GenerateRecommendations failed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
	if len(result.Recommendations) != 1 {
		t.Errorf("got %d recommendations, want 1", len(result.Recommendations))
	}
}

func TestOpenAIAuthErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := p.GenerateRecommendations(context.Background(), &GenerateRequest{
		Config:      testUserConfig(),
		ContentType: models.ContentTypeMovie,
		Count:       1,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := Classify(err); got != ClassAuth {
		t.Errorf("Classify = %v, want ClassAuth", got)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times for auth failure, want 1", got)
	}
}

func TestOpenAIValidateKey(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q, want /v1/models", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`))
	})

	if err := p.ValidateKey(context.Background()); err != nil {
		t.Errorf("ValidateKey failed: %v", err)
	}
}

func TestOpenAIValidateKeyRejected(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	err := p.ValidateKey(context.Background())
	if Classify(err) != ClassAuth {
		t.Errorf("Classify = %v, want ClassAuth", Classify(err))
	}
}

func TestFactorySelectsVariant(t *testing.T) {
	factory := NewFactory(config.ProvidersConfig{
		DefaultModels: map[string]string{
			"openai": "gpt-4o-mini",
			"gemini": "gemini-2.0-flash",
		},
		RetryMaxAttempts:        3,
		RetryBaseDelay:          time.Second,
		RetryMaxDelay:           8 * time.Second,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         time.Minute,
		CallTimeout:             30 * time.Second,
	}, newTestPool())

	openaiCfg := testUserConfig()
	p, err := factory.ForUser(openaiCfg)
	if err != nil {
		t.Fatalf("ForUser(openai) failed: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name = %q, want openai", p.Name())
	}

	geminiCfg := testUserConfig()
	geminiCfg.Provider = "gemini"
	p, err = factory.ForUser(geminiCfg)
	if err != nil {
		t.Fatalf("ForUser(gemini) failed: %v", err)
	}
	if _, ok := p.(*GeminiProvider); !ok {
		t.Errorf("ForUser(gemini) = %T, want *GeminiProvider", p)
	}

	badCfg := testUserConfig()
	badCfg.Provider = "unknown"
	if _, err := factory.ForUser(badCfg); err == nil {
		t.Error("ForUser(unknown) succeeded, want error")
	}
}

func TestFactorySharesBreakerPerProvider(t *testing.T) {
	factory := NewFactory(config.ProvidersConfig{
		DefaultModels:           map[string]string{"openai": "gpt-4o-mini"},
		RetryMaxAttempts:        1,
		RetryBaseDelay:          time.Millisecond,
		RetryMaxDelay:           time.Millisecond,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         time.Minute,
		CallTimeout:             time.Second,
	}, newTestPool())

	a, _ := factory.ForUser(testUserConfig())
	other := testUserConfig()
	other.APIKey = "sk-different-key"
	b, _ := factory.ForUser(other)

	if a.(*OpenAIProvider).breaker != b.(*OpenAIProvider).breaker {
		t.Error("two users of the same provider got different breakers")
	}
	if a.(*OpenAIProvider).client == b.(*OpenAIProvider).client {
		t.Error("two users with different keys shared a client")
	}
}
