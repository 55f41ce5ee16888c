package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]int{
		"1:30":  90,
		"0:05":  5,
		"2:00":  120,
		"12:45": 765,
		"0:75":  75,
		" 1:00": 60,
		"0:00":  0,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseDurationMalformed(t *testing.T) {
	for _, input := range []string{"abc", "", "1", "1:2:3", ":30", "1:", "-1:30", "1:-5", "+1:30", "1.5:00", "a:30", "99999999999999999999:00"} {
		_, err := ParseDuration(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, ErrMalformedDuration), "input %q: %v", input, err)
	}
}

func TestParseDurationOverflow(t *testing.T) {
	_, err := ParseDuration("9223372036854775807:00")
	assert.ErrorIs(t, err, ErrMalformedDuration)
}

func TestParseInstant(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	got, err := ParseInstant("2024-03-01T09:15:00", loc)
	require.NoError(t, err)
	assert.Equal(t, "09:15", got.In(loc).Format(ClockLayout))

	got, err = ParseInstant("2024-03-01T08:15:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "09:15", got.In(loc).Format(ClockLayout))

	got, err = ParseInstant("2024-03-01T09:15:00.250+01:00", loc)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, time.Duration(got.Nanosecond()))

	_, err = ParseInstant("yesterday", loc)
	assert.Error(t, err)
	_, err = ParseInstant("", loc)
	assert.Error(t, err)
}

func TestCalendarDaysBetween(t *testing.T) {
	start := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 0, CalendarDaysBetween(start, start.Add(20*time.Minute)))
	assert.Equal(t, 1, CalendarDaysBetween(start, start.Add(45*time.Minute)))
	assert.Equal(t, 2, CalendarDaysBetween(start, start.Add(25*time.Hour)))
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	_, err = ParseDate("01-03-2024")
	assert.Error(t, err)
}
