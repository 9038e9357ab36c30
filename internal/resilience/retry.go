// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package resilience provides the two generic, composable primitives that
// shield Reelsmith from flaky upstreams: exponential-backoff retry and a
// circuit breaker. They are independent decorators; providers compose them
// as breaker.Execute(func() { return resilience.Do(...) }) so one logical
// operation counts once against the breaker no matter how many retry
// attempts it took.
package resilience

import (
	"context"
	"time"

	"github.com/reelsmith/reelsmith/internal/logging"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// OnRetry, when set, is invoked before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns conservative retry defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    8 * time.Second,
	}
}

// Delay returns the backoff before attempt n+1, given that attempt n
// (1-based) just failed: min(MaxDelay, BaseDelay * 2^(n-1)).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do executes op with exponential backoff. Only errors for which retryable
// returns true are retried; everything else propagates immediately. When
// the final attempt fails, the ORIGINAL error is returned unwrapped so the
// circuit breaker and the error taxonomy see the true cause.
//
// Backoff waits are cancellable; a context cancellation during a wait
// returns ctx.Err() immediately.
func Do[T any](ctx context.Context, policy Policy, retryable func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}
		logging.Ctx(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Dur("delay", delay).
			Msg("Retrying after transient failure")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
