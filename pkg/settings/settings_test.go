package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/ordering"
)

func ptr(s string) *string { return &s }

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.True(t, d.RolloverEnabled)
	assert.Equal(t, 3, d.RolloverHour)
	assert.Equal(t, 0, d.RolloverMinute)
	assert.Equal(t, ordering.Manual, d.SortType)
	assert.Nil(t, d.DailyReminderTime)
	assert.Equal(t, d, d.Normalize())
}

func TestNormalizeClamps(t *testing.T) {
	s := Defaults()
	s.RolloverHour = 27
	s.RolloverMinute = -5
	s.SortType = "SIDEWAYS"
	s.DailyReminderTime = ptr("25:00")

	n := s.Normalize()
	assert.Equal(t, 23, n.RolloverHour)
	assert.Equal(t, 0, n.RolloverMinute)
	assert.Equal(t, ordering.Manual, n.SortType)
	assert.Nil(t, n.DailyReminderTime)
}

func TestParseReminderTime(t *testing.T) {
	v, err := ParseReminderTime("7:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05", v)

	for _, bad := range []string{"", "24:00", "12:60", "noon", "12:5"} {
		_, err := ParseReminderTime(bad)
		assert.ErrorIs(t, err, ErrInvalidReminderTime, bad)
	}
}

func TestReminderClock(t *testing.T) {
	s := Defaults()
	_, _, ok := s.ReminderClock()
	assert.False(t, ok)

	s.DailyReminderTime = ptr("21:30")
	h, m, ok := s.ReminderClock()
	require.True(t, ok)
	assert.Equal(t, 21, h)
	assert.Equal(t, 30, m)
}
