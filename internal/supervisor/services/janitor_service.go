// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package services

import (
	"context"
	"time"
)

// JanitorService runs a maintenance function on a fixed interval:
// cache sweeps, client-pool eviction, negative-cache pruning. The
// function must be safe to invoke repeatedly.
type JanitorService struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)
}

// NewJanitorService creates a periodic maintenance service.
func NewJanitorService(name string, interval time.Duration, run func(ctx context.Context)) *JanitorService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &JanitorService{name: name, interval: interval, run: run}
}

// Serve implements suture.Service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.run(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (j *JanitorService) String() string {
	return j.name
}
