package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"dotted", "05.09.2025", "2025-09-05"},
		{"slashed", "05/09/2025", "2025-09-05"},
		{"dashed", "05-09-2025", "2025-09-05"},
		{"iso", "2025-09-05", "2025-09-05"},
		{"two digit year", "05.09.25", "2025-09-05"},
		{"single digit day and month", "5/9/2025", "2025-09-05"},
		{"end of year", "31.12.2024", "2024-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, DefaultCenturyPrefix)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Format("2006-01-02"))
		})
	}
}

func TestParseDateDayFirst(t *testing.T) {
	// Romanian statements are day-month-year: 03/04 is April 3rd, never March 4th.
	got, err := ParseDate("03/04/2025", DefaultCenturyPrefix)
	require.NoError(t, err)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestParseDateInvalid(t *testing.T) {
	invalid := []string{
		"",
		"not a date",
		"32.01.2025",
		"01.13.2025",
		"31.02.2025", // February overflow must not normalize to March
		"05.09",
		"5 9 2025",
	}

	for _, input := range invalid {
		_, err := ParseDate(input, DefaultCenturyPrefix)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseDateCenturyPrefix(t *testing.T) {
	got, err := ParseDate("01.01.99", "19")
	require.NoError(t, err)
	assert.Equal(t, 1999, got.Year())

	// Empty prefix falls back to the default.
	got, err = ParseDate("01.01.25", "")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
}
