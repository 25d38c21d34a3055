package reminder

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

type recorder struct {
	mu        sync.Mutex
	reminders []string
	daily     int
	notified  chan string
}

func (r *recorder) NotifyLevelUp(context.Context, int, int) {}

func (r *recorder) NotifyTaskReminder(_ context.Context, _, title, _ string) {
	r.mu.Lock()
	r.reminders = append(r.reminders, title)
	r.mu.Unlock()
	if r.notified != nil {
		r.notified <- title
	}
}

func (r *recorder) NotifyDailyReminder(context.Context) {
	r.mu.Lock()
	r.daily++
	r.mu.Unlock()
}

func openStore(t *testing.T) store.Persistence {
	t.Helper()
	p, err := store.Open(filepath.Join(t.TempDir(), "nexday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func put(t *testing.T, p store.Persistence, title string, b task.Bucket, at *time.Time, done bool) *task.Task {
	t.Helper()
	tk := task.New(title, task.Easy)
	tk.Bucket = b
	tk.CreatedAt = time.Now()
	tk.ScheduledTime = at
	if done {
		tk.Complete(time.Now())
	}
	require.NoError(t, p.Update(context.Background(), func(tx store.Tx) error { return tx.PutTask(tk) }))
	return tk
}

func ptr(t time.Time) *time.Time { return &t }

func TestPendingFilters(t *testing.T) {
	p := openStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	put(t, p, "later", task.Tomorrow, ptr(base.Add(2*time.Hour)), false)
	put(t, p, "soon", task.Today, ptr(base.Add(time.Hour)), false)
	put(t, p, "past", task.Today, ptr(base.Add(-time.Hour)), false)
	put(t, p, "done", task.Today, ptr(base.Add(time.Hour)), true)
	put(t, p, "untimed", task.Today, nil, false)
	put(t, p, "yesterday", task.Yesterday, ptr(base.Add(time.Hour)), false)

	planner := &Planner{Store: p}
	got, err := planner.Pending(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "soon", got[0].Title)
	assert.Equal(t, "later", got[1].Title)

	require.NoError(t, p.Update(context.Background(), func(tx store.Tx) error {
		s, err := tx.Settings()
		if err != nil {
			return err
		}
		s.TaskRemindersEnabled = false
		return tx.PutSettings(s)
	}))
	got, err = planner.Pending(context.Background(), base)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFireOnceWhenDue(t *testing.T) {
	p := openStore(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	put(t, p, "a", task.Today, ptr(start.Add(time.Minute)), false)
	put(t, p, "b", task.Today, ptr(start.Add(time.Hour)), false)

	rec := &recorder{}
	planner := &Planner{Store: p, Notifier: rec, Now: func() time.Time { return now }}
	ctx := context.Background()

	next, err := planner.Fire(ctx, start)
	require.NoError(t, err)
	assert.True(t, start.Add(time.Minute).Equal(next))
	assert.Empty(t, rec.reminders)

	now = start.Add(2 * time.Minute)
	next, err = planner.Fire(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rec.reminders)
	assert.True(t, start.Add(time.Hour).Equal(next))

	_, err = planner.Fire(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rec.reminders)
}

func TestFireForgetsDepartedTasks(t *testing.T) {
	p := openStore(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(2 * time.Minute)
	gone := put(t, p, "gone", task.Today, ptr(start.Add(time.Minute)), false)
	kept := put(t, p, "kept", task.Today, ptr(start.Add(time.Minute)), false)

	rec := &recorder{}
	planner := &Planner{Store: p, Notifier: rec, Now: func() time.Time { return now }}
	ctx := context.Background()

	_, err := planner.Fire(ctx, start)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gone", "kept"}, rec.reminders)
	require.Len(t, planner.fired, 2)

	require.NoError(t, p.Update(ctx, func(tx store.Tx) error {
		_, err := tx.DeleteTask(gone.ID)
		return err
	}))
	_, err = planner.Fire(ctx, start)
	require.NoError(t, err)
	assert.Contains(t, planner.fired, kept.ID)
	assert.NotContains(t, planner.fired, gone.ID)

	// Switching reminders off and on again must not repeat a sent reminder.
	require.NoError(t, p.Update(ctx, func(tx store.Tx) error {
		s, err := tx.Settings()
		if err != nil {
			return err
		}
		s.TaskRemindersEnabled = false
		return tx.PutSettings(s)
	}))
	_, err = planner.Fire(ctx, start)
	require.NoError(t, err)
	assert.Contains(t, planner.fired, kept.ID)

	require.NoError(t, p.Update(ctx, func(tx store.Tx) error {
		s, err := tx.Settings()
		if err != nil {
			return err
		}
		s.TaskRemindersEnabled = true
		return tx.PutSettings(s)
	}))
	_, err = planner.Fire(ctx, start)
	require.NoError(t, err)
	assert.Len(t, rec.reminders, 2)
}

func TestRunRemindsNewTask(t *testing.T) {
	p := openStore(t)
	rec := &recorder{notified: make(chan string, 1)}
	planner := &Planner{Store: p, Notifier: rec}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- planner.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	put(t, p, "soon", task.Today, ptr(time.Now().Add(100*time.Millisecond)), false)

	select {
	case title := <-rec.notified:
		assert.Equal(t, "soon", title)
	case <-time.After(3 * time.Second):
		t.Fatal("reminder not delivered")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestDailyJob(t *testing.T) {
	p := openStore(t)
	rec := &recorder{}
	job := DailyJob(p, rec)
	ctx := context.Background()

	require.NoError(t, job(ctx))
	assert.Zero(t, rec.daily)

	require.NoError(t, p.Update(ctx, func(tx store.Tx) error {
		s, err := tx.Settings()
		if err != nil {
			return err
		}
		at := "08:00"
		s.DailyReminderTime = &at
		return tx.PutSettings(s)
	}))
	require.NoError(t, job(ctx))
	assert.Equal(t, 1, rec.daily)
}
