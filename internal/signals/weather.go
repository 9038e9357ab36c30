// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/logging"
)

// WeatherClient fetches a coarse weather descriptor for location-aware
// recommendations. It is strictly best-effort: every failure degrades to an
// empty descriptor, never an error to the caller.
type WeatherClient struct {
	baseURL string
	client  *http.Client
}

// NewWeatherClient creates a weather lookup client.
func NewWeatherClient(cfg config.SignalsConfig) *WeatherClient {
	timeout := cfg.WeatherTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &WeatherClient{
		baseURL: cfg.WeatherURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// weatherResponse is the subset of the open-meteo current-weather payload
// the descriptor needs.
type weatherResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Describe returns a short descriptor like "rainy and cold" for the given
// location, or empty string when the lookup fails or times out.
func (w *WeatherClient) Describe(ctx context.Context, loc *config.Location) string {
	if loc == nil {
		return ""
	}

	reqURL := fmt.Sprintf("%s?latitude=%s&longitude=%s&current_weather=true",
		w.baseURL,
		url.QueryEscape(fmt.Sprintf("%.2f", loc.Latitude)),
		url.QueryEscape(fmt.Sprintf("%.2f", loc.Longitude)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return ""
	}

	resp, err := w.client.Do(req)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Weather lookup failed")
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		logging.Ctx(ctx).Debug().Int("status", resp.StatusCode).Msg("Weather lookup non-200")
		return ""
	}

	var payload weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Weather response decode failed")
		return ""
	}

	return describeWeather(payload.CurrentWeather.WeatherCode, payload.CurrentWeather.Temperature)
}

// describeWeather maps WMO weather codes and temperature to a descriptor.
func describeWeather(code int, tempC float64) string {
	var sky string
	switch {
	case code == 0:
		sky = "clear"
	case code <= 3:
		sky = "cloudy"
	case code <= 48:
		sky = "foggy"
	case code <= 67:
		sky = "rainy"
	case code <= 77:
		sky = "snowy"
	case code <= 82:
		sky = "rainy"
	case code <= 86:
		sky = "snowy"
	default:
		sky = "stormy"
	}

	var temp string
	switch {
	case tempC <= 0:
		temp = "freezing"
	case tempC <= 10:
		temp = "cold"
	case tempC <= 20:
		temp = "mild"
	case tempC <= 28:
		temp = "warm"
	default:
		temp = "hot"
	}

	return sky + " and " + temp
}
