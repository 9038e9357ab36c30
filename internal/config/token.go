// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// This file implements the opaque user-config token: a versioned,
// authenticated-encrypted blob carrying the serialized UserConfig.
//
// Encryption Algorithm:
//   - AES-256-GCM (authenticated encryption)
//   - 12-byte random nonce per encryption
//   - Key derived from the token secret using HKDF-SHA256
//
// Token format: "v1." + base64url(nonce || ciphertext || tag)
package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/hkdf"
)

const (
	// tokenKeySalt is the fixed application salt for HKDF key derivation.
	tokenKeySalt = "reelsmith-user-config-token"

	// tokenKeyInfo is the HKDF info parameter for key derivation.
	tokenKeyInfo = "config-token-v1"

	// tokenVersionPrefix identifies the current token format.
	tokenVersionPrefix = "v1."

	// aesKeySize is the size of the AES key in bytes (256 bits).
	aesKeySize = 32

	// gcmNonceSize is the size of the GCM nonce in bytes.
	gcmNonceSize = 12
)

var (
	// ErrEmptySecret is returned when an empty token secret is provided.
	ErrEmptySecret = errors.New("token secret cannot be empty")

	// ErrInvalidToken is the only decode error surfaced toward clients.
	// Raw crypto errors stay server-side.
	ErrInvalidToken = errors.New("invalid configuration token")
)

// TokenCodec encrypts and decrypts opaque user-config tokens.
// The AES key is derived from the server's token secret with HKDF, tying
// every issued token to this deployment's identity.
type TokenCodec struct {
	cipher cipher.AEAD
}

// NewTokenCodec creates a codec from the server token secret.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key, err := deriveTokenKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &TokenCodec{cipher: gcm}, nil
}

// EncodeUserConfig serializes and encrypts a user configuration into an
// opaque, URL-safe token.
func (c *TokenCodec) EncodeUserConfig(cfg *UserConfig) (string, error) {
	if cfg == nil {
		return "", errors.New("user config cannot be nil")
	}

	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to serialize user config: %w", err)
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := c.cipher.Seal(nonce, nonce, plaintext, nil)
	return tokenVersionPrefix + base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// DecodeUserConfig decrypts and validates an opaque token.
//
// Every failure mode maps to ErrInvalidToken: unknown version, truncated
// payload, tampered ciphertext, or a payload that fails UserConfig
// validation. Callers must never echo the underlying cause to clients.
func (c *TokenCodec) DecodeUserConfig(token string) (*UserConfig, error) {
	if !strings.HasPrefix(token, tokenVersionPrefix) {
		return nil, ErrInvalidToken
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, tokenVersionPrefix))
	if err != nil {
		return nil, ErrInvalidToken
	}

	// Minimum length: nonce + at least 1 byte + tag.
	if len(data) < gcmNonceSize+1+c.cipher.Overhead() {
		return nil, ErrInvalidToken
	}

	nonce := data[:gcmNonceSize]
	plaintext, err := c.cipher.Open(nil, nonce, data[gcmNonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	cfg := &UserConfig{}
	if err := json.Unmarshal(plaintext, cfg); err != nil {
		return nil, ErrInvalidToken
	}
	if err := cfg.Validate(); err != nil {
		return nil, ErrInvalidToken
	}

	return cfg, nil
}

// deriveTokenKey derives a 256-bit AES key from the secret using HKDF-SHA256.
func deriveTokenKey(secret string) ([]byte, error) {
	hkdfReader := hkdf.New(
		sha256.New,
		[]byte(secret),
		[]byte(tokenKeySalt),
		[]byte(tokenKeyInfo),
	)

	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("failed to read HKDF output: %w", err)
	}
	return key, nil
}
