// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metrics"
)

// MemoryStore is the default in-process backend. Entries are evicted by
// Sweep once they age past ExpiresAt + staleWindow.
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]*Entry
	staleWindow time.Duration
	maxEntries  int

	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-process cache. staleWindow bounds
// how long expired entries remain servable via GetStale; maxEntries
// bounds the map size (0 = unbounded), evicting the oldest entry by
// GeneratedAt when full.
func NewMemoryStore(staleWindow time.Duration, maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]*Entry),
		staleWindow: staleWindow,
		maxEntries:  maxEntries,
		now:         time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !entry.Fresh(m.now()) {
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("memory").Inc()
	return entry, true
}

func (m *MemoryStore) GetStale(_ context.Context, key string) (*Entry, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.ExpiresAt.Add(m.staleWindow)) {
		return nil, false
	}
	return entry, true
}

func (m *MemoryStore) Set(_ context.Context, key string, entry *Entry) {
	m.mu.Lock()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[key] = entry
	size := len(m.entries)
	m.mu.Unlock()

	metrics.CacheEntries.WithLabelValues("memory").Set(float64(size))
}

// evictOldestLocked removes the entry with the earliest GeneratedAt.
// Caller holds the write lock.
func (m *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range m.entries {
		if oldestKey == "" || entry.GeneratedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.GeneratedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep drops entries past the stale window. Called periodically by the
// janitor service.
func (m *MemoryStore) Sweep(_ context.Context) {
	now := m.now()
	removed := 0

	m.mu.Lock()
	for key, entry := range m.entries {
		if now.After(entry.ExpiresAt.Add(m.staleWindow)) {
			delete(m.entries, key)
			removed++
		}
	}
	size := len(m.entries)
	m.mu.Unlock()

	metrics.CacheEntries.WithLabelValues("memory").Set(float64(size))
	if removed > 0 {
		logging.Debug().Int("removed", removed).Int("remaining", size).Msg("Cache sweep completed")
	}
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]*Entry)
	m.mu.Unlock()
	return nil
}
