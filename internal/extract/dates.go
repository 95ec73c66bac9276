package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultCenturyPrefix is prepended to 2-digit years. Fixed at "20" — a
// documented assumption, configurable but never inferred per-context.
const DefaultCenturyPrefix = "20"

// ParseDate normalizes a matched date substring. Supported separators are
// "/", "-", and "."; the order is day-month-year throughout (Romanian
// statements), plus ISO YYYY-MM-DD.
func ParseDate(raw, centuryPrefix string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if centuryPrefix == "" {
		centuryPrefix = DefaultCenturyPrefix
	}

	// ISO form first: unambiguous.
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}

	sep := ""
	for _, s := range []string{"/", "-", "."} {
		if strings.Contains(raw, s) {
			sep = s
			break
		}
	}
	if sep == "" {
		return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
	}

	parts := strings.Split(raw, sep)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad day in %q: %w", raw, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad month in %q: %w", raw, err)
	}

	yearStr := parts[2]
	if len(yearStr) == 2 {
		yearStr = centuryPrefix + yearStr
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad year in %q: %w", raw, err)
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date out of range %q", raw)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject normalized overflow like 31.02.2025.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid calendar date %q", raw)
	}
	return t, nil
}
