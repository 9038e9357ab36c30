// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package cache

import (
	"context"
	"fmt"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/logging"
)

// New constructs the Store selected by configuration.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		logging.Info().Dur("ttl", cfg.TTL).Dur("stale_window", cfg.StaleWindow).Msg("Using in-memory catalog cache")
		return NewMemoryStore(cfg.StaleWindow, cfg.MaxEntries), nil
	case "badger":
		logging.Info().Str("path", cfg.Badger.Path).Msg("Using badger catalog cache")
		return NewBadgerStore(cfg.Badger.Path, cfg.StaleWindow)
	case "redis":
		logging.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("Using redis catalog cache")
		return NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.StaleWindow)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
