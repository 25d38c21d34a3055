package task

import (
	"fmt"
	"strings"
	"time"
)

const (
	layoutClock = "15:04"
	layoutDay   = "2006-01-02 15:04"
)

// ParseTime accepts RFC3339, "2006-01-02 15:04" in loc, or a bare "15:04"
// which is resolved against the calendar day of now.
func ParseTime(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	loc := now.Location()
	if t, err := time.ParseInLocation(layoutDay, v, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(layoutClock, v, loc); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("task: unrecognized time %q", v)
}

// FormatTime renders a timestamp the way the JSON surfaces do.
func FormatTime(v time.Time) string {
	return v.UTC().Format(time.RFC3339Nano)
}

// FormatClock renders the local wall-clock part of an optional timestamp.
func FormatClock(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.Local().Format(layoutClock)
}
