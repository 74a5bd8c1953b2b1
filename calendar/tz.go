package calendar

import (
	"fmt"
	"strings"
	"time"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime reads an ISO timestamp. An explicit offset or Z is respected;
// otherwise the wall clock is taken to be in assume. A space may separate
// date and time.
func ParseTime(s string, assume *time.Location) (time.Time, error) {
	v := strings.Replace(strings.TrimSpace(s), " ", "T", 1)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	if assume == nil {
		assume = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, assume); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q, use e.g. 2025-09-23T06:30 or 2025-09-23T06:30:00-05:00", s)
}

// Convert parses ts in zone from (ignored when ts carries an offset) and
// returns it in zone to.
func Convert(ts, from, to string) (time.Time, error) {
	fromLoc, err := time.LoadLocation(from)
	if err != nil {
		return time.Time{}, fmt.Errorf("from zone: %w", err)
	}
	toLoc, err := time.LoadLocation(to)
	if err != nil {
		return time.Time{}, fmt.Errorf("to zone: %w", err)
	}
	t, err := ParseTime(ts, fromLoc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(toLoc), nil
}
