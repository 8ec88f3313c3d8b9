package services

import (
	"strings"
	"time"
)

// ParseMonth converts an English month name ("January") to a time.Month.
func ParseMonth(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), strings.TrimSpace(name)) {
			return m, true
		}
	}
	return 0, false
}

// PeriodOf returns the billing period (month name, year) containing t.
func PeriodOf(t time.Time) (string, int) {
	return t.Month().String(), t.Year()
}

// EndOfMonth returns the last instant of the given month in loc.
func EndOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
}

func resolvePeriod(month string, year int, now time.Time) (string, int, error) {
	if month == "" {
		month = now.Month().String()
	} else {
		m, ok := ParseMonth(month)
		if !ok {
			return "", 0, invalid("month", "invalid month name")
		}
		month = m.String()
	}
	if year == 0 {
		year = now.Year()
	}
	if year < 0 {
		return "", 0, invalid("year", "must be positive")
	}
	return month, year, nil
}
