package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/settings"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newScheduler(t *testing.T, dir string, c *fakeClock) *Scheduler {
	t.Helper()
	triggers, err := OpenTriggers(dir)
	require.NoError(t, err)
	return &Scheduler{Triggers: triggers, Now: c.Now, Backoff: time.Minute}
}

func TestScheduleComputesNextTrigger(t *testing.T) {
	c := &fakeClock{t: time.Date(2024, 3, 10, 3, 1, 0, 0, time.UTC)}
	s := newScheduler(t, t.TempDir(), c)

	tr, err := s.Schedule(RolloverTrigger, 3, 0)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC).Equal(tr.Next), tr.Next)

	c.t = time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	tr, err = s.Schedule("early", 3, 0)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC).Equal(tr.Next), tr.Next)
}

func TestScheduleRejectsInvalid(t *testing.T) {
	s := newScheduler(t, t.TempDir(), &fakeClock{t: time.Now()})
	_, err := s.Schedule(RolloverTrigger, 24, 0)
	assert.ErrorIs(t, err, ErrRegister)
	_, err = s.Schedule("Bad Name", 1, 0)
	assert.ErrorIs(t, err, ErrRegister)
}

func TestTriggersSurviveRestartAndCatchUp(t *testing.T) {
	dir := t.TempDir()
	c := &fakeClock{t: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)}
	first := newScheduler(t, dir, c)
	_, err := first.Schedule(RolloverTrigger, 3, 0)
	require.NoError(t, err)

	// Process is down across the trigger time.
	c.t = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	second := newScheduler(t, dir, c)
	runs := 0
	second.Handle(RolloverTrigger, func(context.Context) error {
		runs++
		return nil
	})

	// Re-applying the same configuration keeps the overdue occurrence.
	_, err = second.Schedule(RolloverTrigger, 3, 0)
	require.NoError(t, err)

	fired, err := second.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, runs)

	tr, ok, err := second.Triggers.Get(RolloverTrigger)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC).Equal(tr.Next), tr.Next)
	assert.True(t, c.t.Equal(tr.LastRun))

	fired, err = second.RunDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestRetriesAreBounded(t *testing.T) {
	c := &fakeClock{t: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)}
	s := newScheduler(t, t.TempDir(), c)
	calls := 0
	s.Handle(RolloverTrigger, func(context.Context) error {
		calls++
		return errors.New("storage unavailable")
	})
	_, err := s.Schedule(RolloverTrigger, 3, 0)
	require.NoError(t, err)

	c.t = time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		_, err := s.RunDue(context.Background())
		require.NoError(t, err)
		tr, _, err := s.Triggers.Get(RolloverTrigger)
		require.NoError(t, err)
		c.t = tr.Next
		if tr.Next.Day() == 11 {
			break
		}
	}
	assert.Equal(t, DefaultMaxAttempts, calls)

	tr, _, err := s.Triggers.Get(RolloverTrigger)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC).Equal(tr.Next), tr.Next)
	assert.Zero(t, tr.Attempts)
	assert.Equal(t, "storage unavailable", tr.LastError)
}

func TestPanickingJobIsContained(t *testing.T) {
	c := &fakeClock{t: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)}
	s := newScheduler(t, t.TempDir(), c)
	s.MaxAttempts = 1
	s.Handle(RolloverTrigger, func(context.Context) error { panic("bad") })
	_, err := s.Schedule(RolloverTrigger, 2, 0)
	require.NoError(t, err)
	c.t = c.t.Add(24 * time.Hour)

	_, err = s.RunDue(context.Background())
	require.NoError(t, err)
	tr, _, err := s.Triggers.Get(RolloverTrigger)
	require.NoError(t, err)
	assert.Contains(t, tr.LastError, "panic")
}

func TestConfigure(t *testing.T) {
	c := &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	s := newScheduler(t, t.TempDir(), c)

	set := settings.Defaults()
	reminder := "08:30"
	set.DailyReminderTime = &reminder
	require.NoError(t, s.Configure(set))

	list, err := s.Triggers.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, RolloverTrigger, list[0].Name)
	assert.Equal(t, DailyReminderTrigger, list[1].Name)

	set.RolloverEnabled = false
	set.NotificationsEnabled = false
	require.NoError(t, s.Configure(set))
	list, err = s.Triggers.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConfigureMovesTime(t *testing.T) {
	c := &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	s := newScheduler(t, t.TempDir(), c)
	require.NoError(t, s.Configure(settings.Defaults()))

	set := settings.Defaults()
	set.RolloverHour = 13
	set.RolloverMinute = 15
	require.NoError(t, s.Configure(set))

	tr, ok, err := s.Triggers.Get(RolloverTrigger)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 3, 10, 13, 15, 0, 0, time.UTC).Equal(tr.Next), tr.Next)
}

func TestRunFiresOverdueOnStart(t *testing.T) {
	c := &fakeClock{t: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)}
	s := newScheduler(t, t.TempDir(), c)
	_, err := s.Schedule(RolloverTrigger, 3, 0)
	require.NoError(t, err)
	c.t = time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC)

	ran := make(chan struct{}, 1)
	s.Handle(RolloverTrigger, func(context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("overdue trigger did not fire")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestCancelUnknownIsNoop(t *testing.T) {
	s := newScheduler(t, t.TempDir(), &fakeClock{t: time.Now()})
	assert.NoError(t, s.Cancel("missing"))
}
