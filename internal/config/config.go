// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package config provides configuration management for Reelsmith.
//
// Configuration is loaded in three layers with koanf:
//  1. Struct defaults (defaultConfig)
//  2. YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (REELSMITH_ prefix, __ as section separator)
//
// The loaded Config is validated with go-playground/validator before use.
package config

import "time"

// Config is the root configuration for the Reelsmith server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Cache     CacheConfig     `koanf:"cache"`
	Providers ProvidersConfig `koanf:"providers"`
	Pool      PoolConfig      `koanf:"pool"`
	Metadata  MetadataConfig  `koanf:"metadata"`
	Signals   SignalsConfig   `koanf:"signals"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":7842".
	Addr string `koanf:"addr" validate:"required"`

	// ReadTimeout bounds request header+body reads.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// RequestTimeout is the default per-request pipeline deadline.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`

	// MaxRequestTimeout caps any client-requested deadline.
	MaxRequestTimeout time.Duration `koanf:"max_request_timeout" validate:"gt=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitPerMinute is the per-IP request budget on the catalog surface.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig holds catalog cache settings.
type CacheConfig struct {
	// Backend selects the cache store: memory, badger, or redis.
	Backend string `koanf:"backend" validate:"oneof=memory badger redis"`

	// TTL is how long a generated catalog stays fresh.
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`

	// StaleWindow is how long past expiry a stale entry remains readable
	// for the failure-fallback path.
	StaleWindow time.Duration `koanf:"stale_window" validate:"gt=0"`

	// SweepInterval is how often the janitor removes dead entries.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// MaxEntries bounds the in-memory backend (0 = unbounded).
	MaxEntries int `koanf:"max_entries"`

	// FailureBackoff is the negative-cache window for keys whose last
	// generation failed, bounding retry amplification under outage.
	FailureBackoff time.Duration `koanf:"failure_backoff"`

	// Badger holds settings for the badger backend.
	Badger BadgerConfig `koanf:"badger"`

	// Redis holds settings for the redis backend.
	Redis RedisConfig `koanf:"redis"`
}

// BadgerConfig holds BadgerDB settings for the durable cache backend.
type BadgerConfig struct {
	Path string `koanf:"path"`
}

// RedisConfig holds Redis settings for the networked cache backend.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// ProvidersConfig holds upstream AI provider settings.
type ProvidersConfig struct {
	// BaseURLs allows overriding the OpenAI-compatible endpoint per provider.
	BaseURLs map[string]string `koanf:"base_urls"`

	// DefaultModels is the model used when the user config leaves it empty.
	DefaultModels map[string]string `koanf:"default_models"`

	// RequestsPerMinute throttles logical calls per provider (0 = unlimited).
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// Retry tuning for transient failures.
	RetryMaxAttempts int           `koanf:"retry_max_attempts" validate:"gte=1"`
	RetryBaseDelay   time.Duration `koanf:"retry_base_delay" validate:"gt=0"`
	RetryMaxDelay    time.Duration `koanf:"retry_max_delay" validate:"gt=0"`

	// Breaker tuning.
	BreakerFailureThreshold int           `koanf:"breaker_failure_threshold" validate:"gte=1"`
	BreakerCooldown         time.Duration `koanf:"breaker_cooldown" validate:"gt=0"`

	// CallTimeout bounds a single upstream HTTP attempt.
	CallTimeout time.Duration `koanf:"call_timeout" validate:"gt=0"`
}

// PoolConfig holds upstream client pool settings.
type PoolConfig struct {
	// MaxClients is the pool capacity; LRU eviction applies beyond it.
	MaxClients int `koanf:"max_clients" validate:"gt=0"`

	// IdleTTL evicts clients unused for this long.
	IdleTTL time.Duration `koanf:"idle_ttl" validate:"gt=0"`

	// SweepInterval is how often the janitor evicts idle clients.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// MetadataConfig holds the Cinemeta / RPDB collaborator settings.
type MetadataConfig struct {
	CinemetaURL string        `koanf:"cinemeta_url" validate:"required,url"`
	RPDBURL     string        `koanf:"rpdb_url" validate:"required,url"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`

	// MaxConcurrent bounds parallel title lookups per batch.
	MaxConcurrent int `koanf:"max_concurrent" validate:"gt=0"`
}

// SignalsConfig holds contextual signal settings.
type SignalsConfig struct {
	// WeatherEnabled turns the optional weather descriptor on.
	WeatherEnabled bool `koanf:"weather_enabled"`

	// WeatherURL is the open-meteo style forecast endpoint.
	WeatherURL string `koanf:"weather_url"`

	// WeatherTimeout bounds the weather lookup; failures degrade silently.
	WeatherTimeout time.Duration `koanf:"weather_timeout"`
}

// SecurityConfig holds secrets.
type SecurityConfig struct {
	// TokenSecret derives the AES key for the opaque user-config token.
	TokenSecret string `koanf:"token_secret" validate:"required,min=16"`
}

// defaultConfig returns a Config with all sensible default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":7842",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       65 * time.Second,
			RequestTimeout:     45 * time.Second,
			MaxRequestTimeout:  90 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RateLimitPerMinute: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			Backend:        "memory",
			TTL:            6 * time.Hour,
			StaleWindow:    48 * time.Hour,
			SweepInterval:  10 * time.Minute,
			MaxEntries:     10000,
			FailureBackoff: 15 * time.Second,
			Badger: BadgerConfig{
				Path: "/data/reelsmith-cache",
			},
			Redis: RedisConfig{
				Addr: "127.0.0.1:6379",
			},
		},
		Providers: ProvidersConfig{
			BaseURLs: map[string]string{},
			DefaultModels: map[string]string{
				"openai":     "gpt-4o-mini",
				"groq":       "llama-3.3-70b-versatile",
				"deepseek":   "deepseek-chat",
				"openrouter": "openai/gpt-4o-mini",
				"gemini":     "gemini-2.0-flash",
			},
			RequestsPerMinute:       30,
			RetryMaxAttempts:        3,
			RetryBaseDelay:          1 * time.Second,
			RetryMaxDelay:           8 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerCooldown:         60 * time.Second,
			CallTimeout:             30 * time.Second,
		},
		Pool: PoolConfig{
			MaxClients:    500,
			IdleTTL:       30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Metadata: MetadataConfig{
			CinemetaURL:   "https://v3-cinemeta.strem.io",
			RPDBURL:       "https://api.ratingposterdb.com",
			Timeout:       10 * time.Second,
			MaxConcurrent: 8,
		},
		Signals: SignalsConfig{
			WeatherEnabled: false,
			WeatherURL:     "https://api.open-meteo.com/v1/forecast",
			WeatherTimeout: 3 * time.Second,
		},
		Security: SecurityConfig{
			TokenSecret: "",
		},
	}
}
