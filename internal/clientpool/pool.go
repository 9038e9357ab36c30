// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package clientpool caches upstream API clients per credential so every
// request does not rebuild an HTTP client and its connection pool. The
// pool is bounded: least-recently-used clients are evicted at capacity
// and idle clients are reaped by the janitor.
package clientpool

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/reelsmith/reelsmith/internal/metrics"
)

// Fingerprint derives the pool key from the client's identity. The raw
// API key never appears in logs or metrics, only this digest.
func Fingerprint(baseURL, apiKey string) string {
	sum := sha256.Sum256([]byte(baseURL + "|" + apiKey))
	return hex.EncodeToString(sum[:])
}

type entry[T any] struct {
	key      string
	client   T
	lastUsed time.Time
	elem     *list.Element
}

// Pool is a bounded LRU cache of clients keyed by credential
// fingerprint. Safe for concurrent use.
type Pool[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	order   *list.List // front = most recently used
	max     int
	idleTTL time.Duration

	now func() time.Time
}

// New creates a pool holding at most max clients, evicting any client
// idle longer than idleTTL on Sweep.
func New[T any](max int, idleTTL time.Duration) *Pool[T] {
	if max < 1 {
		max = 1
	}
	return &Pool[T]{
		entries: make(map[string]*entry[T]),
		order:   list.New(),
		max:     max,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Get returns the pooled client for key, creating it with create on
// first use. A creation error is returned without caching anything.
func (p *Pool[T]) Get(key string, create func() (T, error)) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[key]; ok {
		e.lastUsed = p.now()
		p.order.MoveToFront(e.elem)
		return e.client, nil
	}

	client, err := create()
	if err != nil {
		var zero T
		return zero, err
	}

	e := &entry[T]{key: key, client: client, lastUsed: p.now()}
	e.elem = p.order.PushFront(e)
	p.entries[key] = e

	if len(p.entries) > p.max {
		p.evictOldestLocked()
	}
	metrics.ClientPoolSize.Set(float64(len(p.entries)))
	return client, nil
}

func (p *Pool[T]) evictOldestLocked() {
	back := p.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry[T])
	p.order.Remove(back)
	delete(p.entries, e.key)
	metrics.ClientPoolEvictions.WithLabelValues("capacity").Inc()
}

// Sweep evicts clients idle longer than the idle TTL.
func (p *Pool[T]) Sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-p.idleTTL)
	for elem := p.order.Back(); elem != nil; {
		e := elem.Value.(*entry[T])
		if e.lastUsed.After(cutoff) {
			// Ordered by recency, everything further forward is newer.
			break
		}
		prev := elem.Prev()
		p.order.Remove(elem)
		delete(p.entries, e.key)
		metrics.ClientPoolEvictions.WithLabelValues("idle").Inc()
		elem = prev
	}
	metrics.ClientPoolSize.Set(float64(len(p.entries)))
}

// Len returns the number of pooled clients.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
