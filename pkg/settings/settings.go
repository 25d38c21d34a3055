// Package settings holds the user preferences that drive rollover, reminders
// and sorting.
package settings

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"tableflip.dev/nexday/pkg/ordering"
)

const (
	DefaultRolloverHour   = 3
	DefaultRolloverMinute = 0
)

// ErrInvalidReminderTime is returned by ParseReminderTime for values that are
// not HH:MM.
var ErrInvalidReminderTime = errors.New("settings: reminder time must be HH:MM")

var reminderPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Settings is the single preferences record.
type Settings struct {
	RolloverEnabled bool `json:"rolloverEnabled" yaml:"rolloverEnabled"`
	RolloverHour    int  `json:"rolloverHour" yaml:"rolloverHour"`
	RolloverMinute  int  `json:"rolloverMinute" yaml:"rolloverMinute"`

	NotificationsEnabled bool    `json:"notificationsEnabled" yaml:"notificationsEnabled"`
	TaskRemindersEnabled bool    `json:"taskRemindersEnabled" yaml:"taskRemindersEnabled"`
	DailyReminderTime    *string `json:"dailyReminderTime,omitempty" yaml:"dailyReminderTime,omitempty"`

	SortType    ordering.Mode `json:"taskSortType" yaml:"taskSortType"`
	ReverseSort bool          `json:"isReverseSort" yaml:"isReverseSort"`
	// ManualTaskOrder is carried for schema compatibility only. Manual order
	// lives on the tasks themselves.
	ManualTaskOrder *string `json:"-" yaml:"-"`
}

// Defaults is what an absent record reads as.
func Defaults() Settings {
	return Settings{
		RolloverEnabled:      true,
		RolloverHour:         DefaultRolloverHour,
		RolloverMinute:       DefaultRolloverMinute,
		NotificationsEnabled: true,
		TaskRemindersEnabled: true,
		SortType:             ordering.Manual,
	}
}

// Normalize clamps the rollover time into range, drops a malformed reminder
// time and resets an unknown sort mode.
func (s Settings) Normalize() Settings {
	s.RolloverHour = clamp(s.RolloverHour, 0, 23)
	s.RolloverMinute = clamp(s.RolloverMinute, 0, 59)
	if s.DailyReminderTime != nil {
		if v, err := ParseReminderTime(*s.DailyReminderTime); err != nil {
			s.DailyReminderTime = nil
		} else {
			s.DailyReminderTime = &v
		}
	}
	if !s.SortType.Valid() {
		s.SortType = ordering.Manual
	}
	return s
}

// ReminderClock returns the parsed daily reminder hour and minute.
func (s Settings) ReminderClock() (hour, minute int, ok bool) {
	if s.DailyReminderTime == nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(*s.DailyReminderTime, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, false
	}
	return hour, minute, true
}

// ParseReminderTime validates an HH:MM value and returns it zero-padded.
func ParseReminderTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !reminderPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReminderTime, raw)
	}
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidReminderTime, raw)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
