// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package provider

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/reelsmith/reelsmith/internal/models"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Matrix", "matrix"},
		{"the matrix", "matrix"},
		{"A Quiet Place", "quiet place"},
		{"An American Werewolf in London", "american werewolf in london"},
		{"Matrix", "matrix"},
		{"  The   Godfather  ", "godfather"},
		{"Them", "them"},       // not a leading article
		{"Another", "another"}, // "an" must be a separate word
		{"THE LION KING", "lion king"},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedup(t *testing.T) {
	items := []models.Recommendation{
		{Title: "The Matrix", Year: 1999, Reason: "first"},
		{Title: "Inception", Year: 2010},
		{Title: "matrix", Year: 1999, Reason: "duplicate of first"},
		{Title: "The Matrix", Year: 2021}, // different year, kept
		{Title: "Inception", Year: 2010},
	}

	got := Dedup(items)
	if len(got) != 3 {
		t.Fatalf("Dedup kept %d items, want 3: %+v", len(got), got)
	}
	if got[0].Reason != "first" {
		t.Error("Dedup did not keep the first occurrence")
	}
	if got[0].Title != "The Matrix" || got[1].Title != "Inception" || got[2].Year != 2021 {
		t.Errorf("Dedup broke ordering: %+v", got)
	}

	// Idempotence.
	again := Dedup(got)
	if !reflect.DeepEqual(got, again) {
		t.Errorf("Dedup not idempotent: %+v vs %+v", got, again)
	}
}

func TestDedupEmpty(t *testing.T) {
	if got := Dedup(nil); len(got) != 0 {
		t.Errorf("Dedup(nil) = %+v, want empty", got)
	}
}

func TestParseRecommendations(t *testing.T) {
	valid := `{"recommendations":[{"title":"Heat","year":1995,"reason":"classic"},{"title":"Drive","year":2011,"reason":"neo-noir"}]}`

	items, dropped, err := parseRecommendations("openai", valid)
	if err != nil {
		t.Fatalf("parseRecommendations failed: %v", err)
	}
	if len(items) != 2 || dropped != 0 {
		t.Errorf("got %d items (%d dropped), want 2 (0 dropped)", len(items), dropped)
	}
	if items[0].Title != "Heat" || items[0].Year != 1995 {
		t.Errorf("first item = %+v", items[0])
	}
}

func TestParseRecommendationsDropsInvalidItems(t *testing.T) {
	mixed := `{"recommendations":[
		{"title":"Heat","year":1995,"reason":"ok"},
		{"title":"","year":2000,"reason":"empty title"},
		{"title":"Ancient","year":1850,"reason":"year too old"},
		{"title":"   ","year":2005,"reason":"whitespace title"}
	]}`

	items, dropped, err := parseRecommendations("openai", mixed)
	if err != nil {
		t.Fatalf("parseRecommendations failed: %v", err)
	}
	if len(items) != 1 || dropped != 3 {
		t.Errorf("got %d items (%d dropped), want 1 (3 dropped)", len(items), dropped)
	}
}

func TestParseRecommendationsAllInvalidIsSchemaError(t *testing.T) {
	_, _, err := parseRecommendations("openai", `{"recommendations":[{"title":"","year":0,"reason":""}]}`)
	if Classify(err) != ClassSchema {
		t.Errorf("Classify = %v, want ClassSchema", Classify(err))
	}
}

func TestParseRecommendationsMalformedJSON(t *testing.T) {
	_, _, err := parseRecommendations("openai", `{"recommendations": [`)
	if Classify(err) != ClassSchema {
		t.Errorf("Classify = %v, want ClassSchema", Classify(err))
	}
	if IsTransient(err) {
		t.Error("schema errors must not be retried")
	}
}

func TestParseRecommendationsEmpty(t *testing.T) {
	_, _, err := parseRecommendations("openai", "   ")
	if Classify(err) != ClassEmpty {
		t.Errorf("Classify = %v, want ClassEmpty", Classify(err))
	}
}

func TestParseRecommendationsStripsCodeFence(t *testing.T) {
	fenced := "```json\n{\"recommendations\":[{\"title\":\"Heat\",\"year\":1995,\"reason\":\"ok\"}]}\n```"

	items, _, err := parseRecommendations("gemini", fenced)
	if err != nil {
		t.Fatalf("parseRecommendations failed on fenced output: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Heat" {
		t.Errorf("items = %+v", items)
	}
}

func TestClassifyOpenAIErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401}, ClassAuth},
		{"forbidden", &openai.APIError{HTTPStatusCode: 403}, ClassAuth},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "rate limit reached"}, ClassRateLimit},
		{"quota", &openai.APIError{HTTPStatusCode: 429, Message: "you exceeded your current quota"}, ClassQuota},
		{"model missing", &openai.APIError{HTTPStatusCode: 404, Message: "model not found"}, ClassModelUnavailable},
		{"server", &openai.APIError{HTTPStatusCode: 500}, ClassServer},
		{"bad gateway", &openai.APIError{HTTPStatusCode: 502}, ClassServer},
		{"bad request with key hint", &openai.APIError{HTTPStatusCode: 400, Message: "invalid api key provided"}, ClassAuth},
		{"wrapped", &Error{Class: ClassTimeout, Provider: "groq", Err: errors.New("deadline")}, ClassTimeout},
		{"plain", errors.New("something odd"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	transient := []Class{ClassNetwork, ClassTimeout, ClassRateLimit, ClassServer}
	permanent := []Class{ClassAuth, ClassQuota, ClassModelUnavailable, ClassSchema, ClassEmpty, ClassUnknown}

	for _, c := range transient {
		if !IsTransient(&Error{Class: c, Err: errors.New("x")}) {
			t.Errorf("IsTransient(%v) = false, want true", c)
		}
	}
	for _, c := range permanent {
		if IsTransient(&Error{Class: c, Err: errors.New("x")}) {
			t.Errorf("IsTransient(%v) = true, want false", c)
		}
	}
}

func TestBuildPromptContentType(t *testing.T) {
	base := &GenerateRequest{
		Config:      testUserConfig(),
		ContentType: models.ContentTypeMovie,
		Count:       20,
	}

	prompt := buildPrompt(base)
	if !strings.Contains(prompt, "20 movies") {
		t.Errorf("movie prompt missing count/noun: %q", prompt)
	}

	base.ContentType = models.ContentTypeSeries
	prompt = buildPrompt(base)
	if !strings.Contains(prompt, "20 TV series") {
		t.Errorf("series prompt missing count/noun: %q", prompt)
	}
}

func TestBuildPromptIncludesPreferences(t *testing.T) {
	cfg := testUserConfig()
	cfg.Genres = []string{"thriller", "sci-fi"}
	cfg.MaxRating = "PG-13"
	cfg.DiscoveryBias = 0.9

	prompt := buildPrompt(&GenerateRequest{Config: cfg, ContentType: models.ContentTypeMovie, Count: 10})

	for _, want := range []string{"thriller, sci-fi", "PG-13", "hidden gems"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q: %q", want, prompt)
		}
	}
}
