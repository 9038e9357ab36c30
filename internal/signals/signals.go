// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

// Package signals derives temporal and contextual signals from wall-clock
// time and the static user configuration. Signals are computed fresh per
// request; only the coarse temporal bucket participates in cache keys so
// key cardinality stays bounded.
package signals

import (
	"fmt"
	"time"

	"github.com/reelsmith/reelsmith/internal/config"
)

// TimeOfDay is a coarse bucket of the day.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // 05:00-11:59
	Afternoon TimeOfDay = "afternoon" // 12:00-16:59
	Evening   TimeOfDay = "evening"   // 17:00-21:59
	Night     TimeOfDay = "night"     // 22:00-04:59
)

// Season is the meteorological season, hemisphere-aware.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// Signals is an immutable snapshot of the request's temporal context.
type Signals struct {
	TimeOfDay TimeOfDay
	DayOfWeek time.Weekday
	Weekend   bool
	Season    Season
	Holiday   string // empty when no holiday is near
	Weather   string // optional coarse descriptor, empty when unavailable
}

// Compute derives signals from the given instant and user configuration.
// It is a pure function; callers inject the clock.
func Compute(now time.Time, userCfg *config.UserConfig) Signals {
	southern := false
	if userCfg != nil && userCfg.Location != nil {
		southern = userCfg.Location.Latitude < 0
	}

	s := Signals{
		TimeOfDay: timeOfDay(now.Hour()),
		DayOfWeek: now.Weekday(),
		Weekend:   now.Weekday() == time.Saturday || now.Weekday() == time.Sunday,
		Season:    season(now, southern),
		Holiday:   holidayNear(now),
	}
	return s
}

// TemporalBucket folds the signals into a coarse cache-key component:
// timeofday-daytype-season. Holiday and weather are deliberately excluded;
// they vary too often to be worth a cache-key dimension.
func (s Signals) TemporalBucket() string {
	daytype := "weekday"
	if s.Weekend {
		daytype = "weekend"
	}
	return fmt.Sprintf("%s-%s-%s", s.TimeOfDay, daytype, s.Season)
}

// Describe renders the signals as prompt-ready fragments.
func (s Signals) Describe() []string {
	parts := []string{
		fmt.Sprintf("time of day: %s", s.TimeOfDay),
		fmt.Sprintf("day: %s", s.DayOfWeek),
		fmt.Sprintf("season: %s", s.Season),
	}
	if s.Holiday != "" {
		parts = append(parts, fmt.Sprintf("upcoming holiday: %s", s.Holiday))
	}
	if s.Weather != "" {
		parts = append(parts, fmt.Sprintf("weather: %s", s.Weather))
	}
	return parts
}

func timeOfDay(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// season maps month to meteorological season, flipped for the southern
// hemisphere.
func season(now time.Time, southern bool) Season {
	var s Season
	switch now.Month() {
	case time.March, time.April, time.May:
		s = Spring
	case time.June, time.July, time.August:
		s = Summer
	case time.September, time.October, time.November:
		s = Autumn
	default:
		s = Winter
	}

	if southern {
		switch s {
		case Spring:
			return Autumn
		case Summer:
			return Winter
		case Autumn:
			return Spring
		case Winter:
			return Summer
		}
	}
	return s
}
