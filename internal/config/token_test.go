// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package config

import (
	"errors"
	"strings"
	"testing"
)

func testUserConfig() *UserConfig {
	return &UserConfig{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		APIKey:       "sk-test-12345678",
		EnableMovies: true,
		EnableSeries: true,
		CatalogSize:  20,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("test-secret-with-enough-length")
	if err != nil {
		t.Fatalf("NewTokenCodec failed: %v", err)
	}

	original := testUserConfig()
	token, err := codec.EncodeUserConfig(original)
	if err != nil {
		t.Fatalf("EncodeUserConfig failed: %v", err)
	}
	if !strings.HasPrefix(token, "v1.") {
		t.Errorf("expected v1. prefix, got %q", token[:10])
	}

	decoded, err := codec.DecodeUserConfig(token)
	if err != nil {
		t.Fatalf("DecodeUserConfig failed: %v", err)
	}
	if decoded.Provider != original.Provider || decoded.APIKey != original.APIKey {
		t.Errorf("round trip mismatch: %+v vs %+v", decoded, original)
	}
	if decoded.CatalogSize != 20 {
		t.Errorf("expected catalog size 20, got %d", decoded.CatalogSize)
	}
}

func TestTokenUniqueness(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret-with-enough-length")

	a, _ := codec.EncodeUserConfig(testUserConfig())
	b, _ := codec.EncodeUserConfig(testUserConfig())
	if a == b {
		t.Error("expected distinct ciphertexts for identical configs (random nonce)")
	}
}

func TestDecodeRejections(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret-with-enough-length")
	valid, _ := codec.EncodeUserConfig(testUserConfig())

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no version prefix", strings.TrimPrefix(valid, "v1.")},
		{"unknown version", "v9." + strings.TrimPrefix(valid, "v1.")},
		{"not base64", "v1.!!!!"},
		{"too short", "v1.AAAA"},
		{"tampered", valid[:len(valid)-4] + "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.DecodeUserConfig(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestDecodeWithWrongSecret(t *testing.T) {
	codecA, _ := NewTokenCodec("secret-a-with-enough-length")
	codecB, _ := NewTokenCodec("secret-b-with-enough-length")

	token, _ := codecA.EncodeUserConfig(testUserConfig())
	if _, err := codecB.DecodeUserConfig(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestDecodeRejectsInvalidConfig(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret-with-enough-length")

	bad := testUserConfig()
	bad.CatalogSize = 5000 // out of range
	token, err := codec.EncodeUserConfig(bad)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := codec.DecodeUserConfig(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for invalid payload, got %v", err)
	}
}

func TestNewTokenCodecEmptySecret(t *testing.T) {
	if _, err := NewTokenCodec(""); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}

func TestUserConfigHashStability(t *testing.T) {
	a := testUserConfig()
	b := testUserConfig()
	if a.Hash() != b.Hash() {
		t.Error("identical configs must hash identically")
	}

	b.CatalogSize = 25
	if a.Hash() == b.Hash() {
		t.Error("different configs must hash differently")
	}
	if len(a.Hash()) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a.Hash()))
	}
}
