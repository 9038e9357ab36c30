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

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/logging"
	"github.com/reelsmith/reelsmith/internal/metrics"
)

// BadgerStore persists catalogs across restarts on a single node. Hard
// eviction rides Badger's native TTL set to ExpiresAt + staleWindow;
// logical freshness is still decided from the stored Entry.
type BadgerStore struct {
	db          *badger.DB
	staleWindow time.Duration
	now         func() time.Time
}

// NewBadgerStore opens (or creates) a Badger database at path.
func NewBadgerStore(path string, staleWindow time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger cache at %s: %w", path, err)
	}

	return &BadgerStore{
		db:          db,
		staleWindow: staleWindow,
		now:         time.Now,
	}, nil
}

func (b *BadgerStore) Get(ctx context.Context, key string) (*Entry, bool) {
	entry, ok := b.read(ctx, key)
	if !ok || !entry.Fresh(b.now()) {
		metrics.CacheMisses.WithLabelValues("badger").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("badger").Inc()
	return entry, true
}

func (b *BadgerStore) GetStale(ctx context.Context, key string) (*Entry, bool) {
	// Badger's TTL already bounds staleness, anything readable is
	// inside the window.
	return b.read(ctx, key)
}

func (b *BadgerStore) read(_ context.Context, key string) (*Entry, bool) {
	var entry Entry
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			metrics.CacheErrors.WithLabelValues("badger", "read").Inc()
			logging.Warn().Err(err).Str("key", key).Msg("Badger cache read failed, treating as miss")
		}
		return nil, false
	}
	return &entry, true
}

func (b *BadgerStore) Set(_ context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("badger", "encode").Inc()
		logging.Warn().Err(err).Str("key", key).Msg("Badger cache encode failed, skipping write")
		return
	}

	ttl := entry.ExpiresAt.Add(b.staleWindow).Sub(b.now())
	if ttl <= 0 {
		return
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.CacheErrors.WithLabelValues("badger", "write").Inc()
		logging.Warn().Err(err).Str("key", key).Msg("Badger cache write failed")
	}
}

// Len is not cheaply countable in Badger without a full key scan.
func (b *BadgerStore) Len() int {
	return -1
}

// Sweep runs a value-log GC pass. Expired keys are already unreachable
// via the entry TTL, this reclaims disk space.
func (b *BadgerStore) Sweep(_ context.Context) {
	if err := b.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		logging.Debug().Err(err).Msg("Badger value log GC pass skipped")
	}
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
