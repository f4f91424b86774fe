// Package timeutil provides calendar-date utilities for streak tracking.
// All learner activity is bucketed into UTC calendar days, so streak math
// operates on date-only values regardless of where a learner lives.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DateOf truncates a time to its UTC calendar date (00:00:00 UTC).
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar date.
func Today() time.Time {
	return DateOf(time.Now())
}

// Date creates a UTC calendar date from its components.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Positive when b is after a, negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// SameDay reports whether two times fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// IsYesterday reports whether a falls on the calendar day before b.
func IsYesterday(a, b time.Time) bool {
	return DaysBetween(a, b) == 1
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	return DateOf(t)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// FormatDate formats a time as an ISO calendar date (YYYY-MM-DD).
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD) into a UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q: %w", s, err)
	}
	return t, nil
}

// DaysAgo returns the UTC calendar date n days before today.
func DaysAgo(n int) time.Time {
	return Today().AddDate(0, 0, -n)
}

// HumanDuration formats a duration in a compact human-readable form
// (e.g., "2h15m", "45s") for notification messages.
func HumanDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) - h*60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
