// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metrics"
)

// RedisStore shares the catalog cache across gateway replicas. Redis key
// expiry is set to ExpiresAt + staleWindow so stale entries remain
// servable until the window closes.
type RedisStore struct {
	client      *redis.Client
	staleWindow time.Duration
	now         func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, staleWindow time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client:      client,
		staleWindow: staleWindow,
		now:         time.Now,
	}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (*Entry, bool) {
	entry, ok := r.read(ctx, key)
	if !ok || !entry.Fresh(r.now()) {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()
	return entry, true
}

func (r *RedisStore) GetStale(ctx context.Context, key string) (*Entry, bool) {
	return r.read(ctx, key)
}

func (r *RedisStore) read(ctx context.Context, key string) (*Entry, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.CacheErrors.WithLabelValues("redis", "read").Inc()
			logging.Warn().Err(err).Str("key", key).Msg("Redis cache read failed, treating as miss")
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "decode").Inc()
		logging.Warn().Err(err).Str("key", key).Msg("Redis cache entry corrupt, treating as miss")
		return nil, false
	}
	return &entry, true
}

func (r *RedisStore) Set(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "encode").Inc()
		logging.Warn().Err(err).Str("key", key).Msg("Redis cache encode failed, skipping write")
		return
	}

	ttl := entry.ExpiresAt.Add(r.staleWindow).Sub(r.now())
	if ttl <= 0 {
		return
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "write").Inc()
		logging.Warn().Err(err).Str("key", key).Msg("Redis cache write failed")
	}
}

func (r *RedisStore) Len() int {
	return -1
}

// Sweep is a no-op, Redis evicts expired keys natively.
func (r *RedisStore) Sweep(_ context.Context) {}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
