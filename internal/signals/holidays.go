// Reelsmith - AI-Powered Media Catalog Gateway
// Copyright 2026 Reelsmith Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelsmith/reelsmith

package signals

import "time"

// holidayWindow is how many days ahead a holiday colors recommendations.
const holidayWindow = 7

// fixedHoliday is a holiday that falls on the same date every year.
type fixedHoliday struct {
	month time.Month
	day   int
	name  string
}

var fixedHolidays = []fixedHoliday{
	{time.January, 1, "New Year's Day"},
	{time.February, 14, "Valentine's Day"},
	{time.March, 17, "St. Patrick's Day"},
	{time.July, 4, "Independence Day"},
	{time.October, 31, "Halloween"},
	{time.December, 25, "Christmas"},
	{time.December, 31, "New Year's Eve"},
}

// holidayNear returns the name of a holiday falling within holidayWindow
// days of now, or empty string. When several are near, the closest wins.
func holidayNear(now time.Time) string {
	best := ""
	bestDelta := holidayWindow + 1

	check := func(date time.Time, name string) {
		delta := int(date.Sub(truncateDay(now)).Hours() / 24)
		if delta >= 0 && delta <= holidayWindow && delta < bestDelta {
			best = name
			bestDelta = delta
		}
	}

	for _, h := range fixedHolidays {
		// A holiday early next year can be near in late December.
		for _, year := range []int{now.Year(), now.Year() + 1} {
			check(time.Date(year, h.month, h.day, 0, 0, 0, 0, now.Location()), h.name)
		}
	}

	easter := easterSunday(now.Year(), now.Location())
	check(easter, "Easter")
	check(easterSunday(now.Year()+1, now.Location()), "Easter")
	// Thanksgiving: fourth Thursday of November.
	check(nthWeekday(now.Year(), time.November, time.Thursday, 4, now.Location()), "Thanksgiving")
	check(nthWeekday(now.Year()+1, time.November, time.Thursday, 4, now.Location()), "Thanksgiving")

	return best
}

// easterSunday computes western Easter via the anonymous Gregorian computus.
func easterSunday(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// nthWeekday returns the nth occurrence of a weekday in the given month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
