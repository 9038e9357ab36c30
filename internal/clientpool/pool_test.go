// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package clientpool

import (
	"errors"
	"testing"
	"time"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("https://api.openai.com/v1", "sk-aaa")
	b := Fingerprint("https://api.openai.com/v1", "sk-bbb")
	c := Fingerprint("https://api.groq.com/openai/v1", "sk-aaa")

	if a == b {
		t.Error("different API keys produced the same fingerprint")
	}
	if a == c {
		t.Error("different base URLs produced the same fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
	if a != Fingerprint("https://api.openai.com/v1", "sk-aaa") {
		t.Error("fingerprint is not deterministic")
	}
}

func TestPoolreusesClients(t *testing.T) {
	p := New[*int](10, time.Hour)

	created := 0
	create := func() (*int, error) {
		created++
		v := created
		return &v, nil
	}

	first, err := p.Get("k1", create)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := p.Get("k1", create)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if first != second {
		t.Error("Get returned a different client for the same key")
	}
	if created != 1 {
		t.Errorf("create called %d times, want 1", created)
	}
}

func TestPoolCreationErrorNotCached(t *testing.T) {
	p := New[*int](10, time.Hour)
	boom := errors.New("dial failed")

	_, err := p.Get("k1", func() (*int, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Get error = %v, want %v", err, boom)
	}
	if p.Len() != 0 {
		t.Errorf("Len = %d after failed creation, want 0", p.Len())
	}

	v := 1
	got, err := p.Get("k1", func() (*int, error) { return &v, nil })
	if err != nil {
		t.Fatalf("Get after failure returned error: %v", err)
	}
	if got != &v {
		t.Error("Get did not retry creation after earlier failure")
	}
}

func TestPoolCapacityEvictsLRU(t *testing.T) {
	p := New[int](2, time.Hour)
	mk := func(v int) func() (int, error) {
		return func() (int, error) { return v, nil }
	}

	_, _ = p.Get("a", mk(1))
	_, _ = p.Get("b", mk(2))
	_, _ = p.Get("a", mk(1)) // refresh a, b becomes LRU
	_, _ = p.Get("c", mk(3)) // evicts b

	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}

	// Probe the survivors first: looking up a present key never inserts,
	// so the pool stays at capacity with a and c intact.
	aCached := true
	_, _ = p.Get("a", func() (int, error) {
		aCached = false
		return 1, nil
	})
	if !aCached {
		t.Error("recently used entry a was evicted instead of LRU")
	}
	cCached := true
	_, _ = p.Get("c", func() (int, error) {
		cCached = false
		return 3, nil
	})
	if !cCached {
		t.Error("newest entry c was evicted instead of LRU")
	}

	// Probing b re-inserts it, so this check comes last.
	recreated := false
	_, _ = p.Get("b", func() (int, error) {
		recreated = true
		return 2, nil
	})
	if !recreated {
		t.Error("LRU entry b was not evicted at capacity")
	}
}

func TestPoolSweepEvictsIdle(t *testing.T) {
	p := New[int](10, 30*time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	p.now = func() time.Time { return now }

	_, _ = p.Get("old", func() (int, error) { return 1, nil })

	now = base.Add(20 * time.Minute)
	_, _ = p.Get("fresh", func() (int, error) { return 2, nil })

	now = base.Add(45 * time.Minute)
	p.Sweep()

	if p.Len() != 1 {
		t.Fatalf("Len after sweep = %d, want 1", p.Len())
	}

	evicted := false
	_, _ = p.Get("old", func() (int, error) {
		evicted = true
		return 1, nil
	})
	if !evicted {
		t.Error("idle client survived sweep")
	}
}

func TestPoolGetRefreshesIdleClock(t *testing.T) {
	p := New[int](10, 30*time.Minute)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	p.now = func() time.Time { return now }

	_, _ = p.Get("k", func() (int, error) { return 1, nil })

	now = base.Add(25 * time.Minute)
	_, _ = p.Get("k", func() (int, error) { return 1, nil })

	now = base.Add(50 * time.Minute)
	p.Sweep()

	if p.Len() != 1 {
		t.Error("recently touched client evicted by sweep")
	}
}

func TestPoolConcurrentAccess(t *testing.T) {
	p := New[int](50, time.Hour)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				key := Fingerprint("https://example.com", string(rune('a'+j%10)))
				_, _ = p.Get(key, func() (int, error) { return id, nil })
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if p.Len() != 10 {
		t.Errorf("Len = %d, want 10 distinct keys", p.Len())
	}
}
