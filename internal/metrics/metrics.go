// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package metrics provides Prometheus instrumentation for Reelsmith.
//
// Covered surfaces:
//   - Catalog cache efficiency (hits, misses, stale serves)
//   - Provider request outcomes by error class
//   - Circuit breaker state and transitions
//   - Generation latency and single-flight coalescing
//   - Title resolution outcomes
//   - HTTP endpoint latency and throughput
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"backend"},
	)

	CacheStaleServes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_stale_serves_total",
			Help: "Total number of stale cache entries served as failure fallback",
		},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_cache_entries",
			Help: "Current number of catalog cache entries",
		},
		[]string{"backend"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of best-effort cache backend errors (never fatal)",
		},
		[]string{"backend", "operation"},
	)

	// Provider Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of logical provider generation calls",
		},
		[]string{"provider", "outcome"}, // outcome: success, failure, rejected
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_errors_total",
			Help: "Total number of provider errors by classification",
		},
		[]string{"provider", "class"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_retries_total",
			Help: "Total number of retry attempts against providers",
		},
		[]string{"provider"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_generation_duration_seconds",
			Help:    "End-to-end catalog generation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "content_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breakers",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	// Single-flight Metrics
	CoalescedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_coalesced_requests_total",
			Help: "Total number of requests that joined an in-flight generation",
		},
	)

	// Title Resolution Metrics
	ResolveOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "title_resolve_outcomes_total",
			Help: "Total number of title resolution outcomes",
		},
		[]string{"outcome"}, // outcome: resolved, unresolved, type_mismatch, error
	)

	// Client Pool Metrics
	ClientPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "client_pool_size",
			Help: "Current number of pooled upstream clients",
		},
	)

	ClientPoolEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_pool_evictions_total",
			Help: "Total number of client pool evictions",
		},
		[]string{"reason"}, // reason: idle, capacity
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)
