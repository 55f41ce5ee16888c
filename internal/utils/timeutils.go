package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-date key used for anomaly buckets.
	DateLayout = "2006-01-02"
	// ClockLayout renders a 24-hour time of day.
	ClockLayout = "15:04"
)

// ErrMalformedDuration reports a duration that is not "<hours>:<minutes>".
var ErrMalformedDuration = errors.New("malformed duration")

// localLayouts are ISO-8601 forms without a zone; they are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDuration decodes an "H:MM" or "HH:MM" duration into minutes. The minutes
// component is not bounded to 59.
func ParseDuration(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, NewAppError("parse duration", strconv.Quote(value), ErrMalformedDuration)
	}
	hours, ok := parseDigits(parts[0])
	if !ok {
		return 0, NewAppError("parse duration", strconv.Quote(value), ErrMalformedDuration)
	}
	minutes, ok := parseDigits(parts[1])
	if !ok {
		return 0, NewAppError("parse duration", strconv.Quote(value), ErrMalformedDuration)
	}
	if hours > (math.MaxInt-minutes)/60 {
		return 0, NewAppError("parse duration", strconv.Quote(value)+" overflows", ErrMalformedDuration)
	}
	return hours*60 + minutes, nil
}

// parseDigits accepts only unsigned base-10 integers; strconv.Atoi alone would admit signs.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseInstant reads an RFC 3339 instant, or a zone-less ISO local time interpreted in loc.
func ParseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unsupported layout", value)
}

// FromEpochMillis converts a JavaScript-style epoch millisecond value.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// ParseDate validates a YYYY-MM-DD key and returns midnight UTC of that date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return d, nil
}

// CalendarDaysBetween counts local calendar-date boundaries crossed from a to b.
func CalendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Round(time.Hour).Hours() / 24)
}
