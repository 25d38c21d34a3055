package timeutil

import (
	"fmt"
	"time"
)

// At returns hour:minute on the calendar day of t, in t's location.
func At(t time.Time, hour, minute int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
}

// NextDaily is the first hour:minute strictly after now: today's when it is
// still ahead, otherwise tomorrow's.
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := At(now, hour, minute)
	if !next.After(now) {
		y, m, d := now.Date()
		next = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// PreviousDaily is the latest hour:minute at or before now.
func PreviousDaily(now time.Time, hour, minute int) time.Time {
	prev := At(now, hour, minute)
	if prev.After(now) {
		y, m, d := now.Date()
		prev = time.Date(y, m, d-1, hour, minute, 0, 0, now.Location())
	}
	return prev
}

// ParseClock parses "H:MM" or "HH:MM" in 24-hour time.
func ParseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", raw)
	}
	return t.Hour(), t.Minute(), nil
}

// FormatClock renders hour and minute as HH:MM.
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
