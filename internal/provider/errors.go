// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Class categorizes an upstream provider failure. The class decides both
// retry eligibility and which placeholder catalog the user sees when no
// stale cache entry can cover the failure.
type Class int

const (
	ClassUnknown Class = iota
	ClassAuth
	ClassRateLimit
	ClassQuota
	ClassModelUnavailable
	ClassNetwork
	ClassTimeout
	ClassServer
	ClassSchema
	ClassEmpty
)

func (c Class) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassRateLimit:
		return "rate_limit"
	case ClassQuota:
		return "quota"
	case ClassModelUnavailable:
		return "model_unavailable"
	case ClassNetwork:
		return "network"
	case ClassTimeout:
		return "timeout"
	case ClassServer:
		return "server"
	case ClassSchema:
		return "schema"
	case ClassEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	Class    Class
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = &Error{Class: ClassEmpty, Err: errors.New("model returned an empty response")}

// Classify returns the failure class of err, digging through wrapping.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, fmt.Sprintf("%v", apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	return ClassUnknown
}

// classifyStatus maps an HTTP status plus message text to a class. The
// message fallback catches providers that return 400 for quota or key
// problems.
func classifyStatus(status int, message string) Class {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ClassAuth
	case http.StatusTooManyRequests:
		if containsAny(message, "quota", "billing", "exceeded your current") {
			return ClassQuota
		}
		return ClassRateLimit
	case http.StatusNotFound:
		return ClassModelUnavailable
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ClassTimeout
	}
	if status >= 500 {
		return ClassServer
	}
	if status == http.StatusBadRequest {
		switch {
		case containsAny(message, "api key", "api_key", "authentication"):
			return ClassAuth
		case containsAny(message, "model"):
			return ClassModelUnavailable
		}
	}
	return ClassUnknown
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying: network faults,
// timeouts, rate limits, and server-side errors. Auth, quota, schema,
// and model errors fail fast.
func IsTransient(err error) bool {
	switch Classify(err) {
	case ClassNetwork, ClassTimeout, ClassRateLimit, ClassServer:
		return true
	default:
		return false
	}
}

// classified wraps err as a provider Error, preserving an existing class
// when err is already classified.
func classified(providerName string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			return &Error{Class: pe.Class, Provider: providerName, Err: pe.Err}
		}
		return err
	}
	return &Error{Class: Classify(err), Provider: providerName, Err: err}
}
