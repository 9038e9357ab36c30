// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package cache stores generated catalogs keyed by user configuration,
// catalog identity, and temporal bucket. Three backends share one
// interface: an in-process map (default), BadgerDB for single-node
// persistence, and Redis for multi-node deployments.
//
// The cache is strictly best-effort: a read error is treated as a miss
// and a write error is logged and swallowed. Generation must never fail
// because the cache is unhealthy.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/reelsmith/reelsmith/internal/models"
)

// Entry is a cached catalog together with its freshness bounds.
type Entry struct {
	Catalog     models.Catalog `json:"catalog"`
	GeneratedAt time.Time      `json:"generatedAt"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	ConfigHash  string         `json:"configHash"`
}

// Fresh reports whether the entry is still within its TTL.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store is the catalog cache contract. Get returns only fresh entries;
// GetStale additionally returns expired entries still inside the stale
// window, for serve-stale-on-failure. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the entry for key if present and fresh.
	Get(ctx context.Context, key string) (*Entry, bool)

	// GetStale returns the entry for key if present, fresh or not.
	// Entries past the stale window are evicted by the backend and
	// never returned.
	GetStale(ctx context.Context, key string) (*Entry, bool)

	// Set stores the entry under key. Failures are logged, not returned.
	Set(ctx context.Context, key string, entry *Entry)

	// Len returns the number of entries currently held, or -1 when the
	// backend cannot count cheaply.
	Len() int

	// Sweep removes entries past the stale window. Backends with native
	// TTL eviction may make this a no-op.
	Sweep(ctx context.Context)

	// Close releases backend resources.
	Close() error
}

// Key builds the canonical cache key. The config hash covers the full
// user configuration including the API key, so entries are scoped to a
// single user's credentials.
func Key(configHash, catalogType, catalogID, temporalBucket string) string {
	return fmt.Sprintf("catalog:%s:%s:%s:%s", configHash, catalogType, catalogID, temporalBucket)
}
