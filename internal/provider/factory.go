// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package provider

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/reelsmith/reelsmith/internal/clientpool"
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/resilience"
)

// defaultBaseURLs maps the OpenAI-compatible provider family to its
// endpoint. The openai entry is empty so go-openai uses its own default.
var defaultBaseURLs = map[string]string{
	"openai":     "",
	"groq":       "https://api.groq.com/openai/v1",
	"deepseek":   "https://api.deepseek.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"gemini":     "https://generativelanguage.googleapis.com",
}

// Factory builds Provider instances per user configuration. Clients are
// pooled per credential; breakers and rate limiters are shared per
// provider name so one user's failures protect everyone hitting the same
// upstream.
type Factory struct {
	cfg  config.ProvidersConfig
	pool *clientpool.Pool[*openai.Client]

	// geminiHTTP is shared across gemini users, connection reuse without
	// per-key state.
	geminiHTTP *http.Client

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
	limiters map[string]*rate.Limiter
}

// NewFactory creates a provider factory backed by the given client pool.
func NewFactory(cfg config.ProvidersConfig, pool *clientpool.Pool[*openai.Client]) *Factory {
	return &Factory{
		cfg:  cfg,
		pool: pool,
		geminiHTTP: &http.Client{
			Timeout: cfg.CallTimeout + 5*time.Second,
		},
		breakers: make(map[string]*resilience.Breaker),
		limiters: make(map[string]*rate.Limiter),
	}
}

// ForUser returns the Provider matching the user's configuration.
func (f *Factory) ForUser(userCfg *config.UserConfig) (Provider, error) {
	model := userCfg.Model
	if model == "" {
		model = f.cfg.DefaultModels[userCfg.Provider]
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured for provider %q", userCfg.Provider)
	}

	baseURL := f.baseURL(userCfg.Provider)
	breaker := f.breakerFor(userCfg.Provider)
	limiter := f.limiterFor(userCfg.Provider)
	retry := resilience.Policy{
		MaxAttempts: f.cfg.RetryMaxAttempts,
		BaseDelay:   f.cfg.RetryBaseDelay,
		MaxDelay:    f.cfg.RetryMaxDelay,
	}

	switch userCfg.Provider {
	case "openai", "groq", "deepseek", "openrouter":
		client, err := f.pool.Get(clientpool.Fingerprint(baseURL, userCfg.APIKey), func() (*openai.Client, error) {
			clientCfg := openai.DefaultConfig(userCfg.APIKey)
			if baseURL != "" {
				clientCfg.BaseURL = baseURL
			}
			return openai.NewClientWithConfig(clientCfg), nil
		})
		if err != nil {
			return nil, err
		}
		return &OpenAIProvider{
			name:        userCfg.Provider,
			model:       model,
			client:      client,
			breaker:     breaker,
			limiter:     limiter,
			retry:       retry,
			callTimeout: f.cfg.CallTimeout,
			webSearch:   userCfg.EnableWebSearch,
		}, nil

	case "gemini":
		return &GeminiProvider{
			model:       model,
			apiKey:      userCfg.APIKey,
			baseURL:     baseURL,
			httpClient:  f.geminiHTTP,
			breaker:     breaker,
			limiter:     limiter,
			retry:       retry,
			callTimeout: f.cfg.CallTimeout,
			webSearch:   userCfg.EnableWebSearch,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported provider %q", userCfg.Provider)
	}
}

func (f *Factory) baseURL(providerName string) string {
	if url, ok := f.cfg.BaseURLs[providerName]; ok && url != "" {
		return url
	}
	return defaultBaseURLs[providerName]
}

func (f *Factory) breakerFor(providerName string) *resilience.Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if b, ok := f.breakers[providerName]; ok {
		return b
	}
	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             providerName,
		FailureThreshold: uint32(f.cfg.BreakerFailureThreshold),
		Cooldown:         f.cfg.BreakerCooldown,
	})
	f.breakers[providerName] = b
	return b
}

func (f *Factory) limiterFor(providerName string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if l, ok := f.limiters[providerName]; ok {
		return l
	}
	var l *rate.Limiter
	if f.cfg.RequestsPerMinute > 0 {
		l = rate.NewLimiter(rate.Limit(float64(f.cfg.RequestsPerMinute)/60.0), f.cfg.RequestsPerMinute)
	}
	f.limiters[providerName] = l
	return l
}
