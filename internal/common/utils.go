package common

import (
	"errors"
	"time"
)

// DateLayout is the calendar-date wire format used across the API and the
// upstream providers.
const DateLayout = "2006-01-02"

// ParseDate accepts a plain calendar date or a full RFC3339 timestamp and
// normalizes to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, errors.New("invalid date format; use YYYY-MM-DD or RFC3339")
}

// FormatDate renders a date in the wire format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatDates renders a date list in the wire format, preserving order.
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out
}
