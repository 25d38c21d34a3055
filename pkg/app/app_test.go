package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/rollover"
	"tableflip.dev/nexday/pkg/scheduler"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

type levelRecorder struct {
	mu     sync.Mutex
	levels []int
}

func (r *levelRecorder) NotifyLevelUp(_ context.Context, level, _ int) {
	r.mu.Lock()
	r.levels = append(r.levels, level)
	r.mu.Unlock()
}

func (r *levelRecorder) NotifyTaskReminder(context.Context, string, string, string) {}

func (r *levelRecorder) NotifyDailyReminder(context.Context) {}

// brokenProgress fails every progress write.
type brokenProgress struct {
	store.Persistence
}

func (b brokenProgress) Update(ctx context.Context, fn func(store.Tx) error) error {
	return b.Persistence.Update(ctx, func(tx store.Tx) error {
		return fn(brokenTx{Tx: tx})
	})
}

type brokenTx struct {
	store.Tx
}

func (brokenTx) PutProgress(progression.Snapshot) error {
	return errors.New("disk full")
}

func newService(t *testing.T) (*Service, *levelRecorder) {
	t.Helper()
	p, err := store.Open(filepath.Join(t.TempDir(), "nexday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	rec := &levelRecorder{}
	return &Service{Persistence: p, Notifier: rec}, rec
}

func mustCreate(t *testing.T, s *Service, title string, b task.Bucket, d task.Difficulty) *task.Task {
	t.Helper()
	in := task.New(title, d)
	in.Bucket = b
	out, err := s.CreateTask(context.Background(), in)
	require.NoError(t, err)
	return out
}

func TestServiceRequiresPersistence(t *testing.T) {
	s := &Service{}
	_, err := s.Tasks(context.Background(), task.Today, ordering.Manual, false)
	assert.ErrorIs(t, err, ErrNoPersistence)
	_, err = s.CompleteTask(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoPersistence)
}

func TestCompleteAwardsXPOnce(t *testing.T) {
	s, rec := newService(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a", task.Today, task.Medium)

	c, err := s.CompleteTask(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, c.Changed)
	assert.True(t, c.Task.IsCompleted)
	assert.Equal(t, 3, c.Progress.Progress.TotalXP)
	assert.True(t, c.Progress.LeveledUp)
	assert.Equal(t, []int{2}, rec.levels)

	c, err = s.CompleteTask(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, c.Changed)
	assert.Equal(t, 3, c.Progress.Progress.TotalXP)
	assert.Equal(t, []int{2}, rec.levels)

	c, err = s.UncompleteTask(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, c.Changed)
	assert.Equal(t, 0, c.Progress.Progress.TotalXP)
	assert.True(t, c.Progress.LeveledDown)

	c, err = s.UncompleteTask(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, c.Changed)
	assert.Equal(t, 0, c.Progress.Progress.TotalXP)
}

func TestCompleteIsAtomicWithXP(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a", task.Today, task.Hard)

	broken := &Service{Persistence: brokenProgress{s.Persistence}}
	_, err := broken.CompleteTask(ctx, a.ID)
	require.Error(t, err)

	got, err := s.Task(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
	snap, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.At(0), snap)
}

func TestLevelUpSilencedWhenNotificationsOff(t *testing.T) {
	s, rec := newService(t)
	ctx := context.Background()
	_, err := s.UpdateSettings(ctx, func(set *settings.Settings) error {
		set.NotificationsEnabled = false
		return nil
	})
	require.NoError(t, err)
	a := mustCreate(t, s, "a", task.Today, task.VeryHard)
	_, err = s.CompleteTask(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, rec.levels)
}

func TestUpdateTaskAdjustsXPOnCompletionChange(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a", task.Today, task.Hard)

	edit := a.Clone()
	edit.IsCompleted = true
	_, err := s.UpdateTask(ctx, edit)
	require.NoError(t, err)
	snap, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.TotalXP)

	got, err := s.Task(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)

	got.Title = "renamed"
	_, err = s.UpdateTask(ctx, got)
	require.NoError(t, err)
	snap, err = s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.TotalXP)

	got.IsCompleted = false
	_, err = s.UpdateTask(ctx, got)
	require.NoError(t, err)
	snap, err = s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalXP)
}

func TestUpdateTaskRebasesXPOnDifficultyChange(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a", task.Today, task.Hard)

	_, err := s.CompleteTask(ctx, a.ID)
	require.NoError(t, err)

	got, err := s.Task(ctx, a.ID)
	require.NoError(t, err)
	got.Difficulty = task.Easy
	_, err = s.UpdateTask(ctx, got)
	require.NoError(t, err)
	snap, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.XPDelta(task.Easy), snap.TotalXP)

	_, err = s.UncompleteTask(ctx, a.ID)
	require.NoError(t, err)
	snap, err = s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalXP)

	// An open task carries no award, so a difficulty edit leaves XP alone.
	got, err = s.Task(ctx, a.ID)
	require.NoError(t, err)
	got.Difficulty = task.VeryHard
	_, err = s.UpdateTask(ctx, got)
	require.NoError(t, err)
	snap, err = s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalXP)
}

func TestTaskResolvesPrefix(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a", task.Today, task.Easy)

	got, err := s.Task(ctx, a.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.Task(ctx, "zzzz-not-there")
	assert.ErrorIs(t, err, store.ErrNotFound)

	b := task.New("b", task.Easy)
	b.ID = "same-1"
	_, err = s.CreateTask(ctx, b)
	require.NoError(t, err)
	c := task.New("c", task.Easy)
	c.ID = "same-2"
	_, err = s.CreateTask(ctx, c)
	require.NoError(t, err)
	_, err = s.Task(ctx, "same")
	assert.ErrorIs(t, err, ErrAmbiguousID)
}

func TestReorderAndPreferredOrder(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a := mustCreate(t, s, "A", task.Today, task.Easy)
	b := mustCreate(t, s, "B", task.Today, task.Hard)
	c := mustCreate(t, s, "C", task.Today, task.Medium)

	_, err := s.SetSort(ctx, ordering.Difficulty, false)
	require.NoError(t, err)
	got, err := s.PreferredTasks(ctx, task.Today)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids(got))

	require.NoError(t, s.ReorderBucket(ctx, task.Today, []string{c.ID, a.ID, b.ID}))
	got, err = s.PreferredTasks(ctx, task.Today)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, ids(got))

	set, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, ordering.Manual, set.SortType)
}

func TestSetSortRejectsUnknown(t *testing.T) {
	s, _ := newService(t)
	_, err := s.SetSort(context.Background(), ordering.Mode("ALPHA"), false)
	assert.Error(t, err)
}

func TestMoveAndSummaries(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a := mustCreate(t, s, "a", task.Tomorrow, task.Easy)
	mustCreate(t, s, "b", task.Today, task.Easy)

	moved, ok, err := s.MoveTask(ctx, a.ID, task.Left)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, task.Today, moved.Bucket)
	_, err = s.CompleteTask(ctx, a.ID)
	require.NoError(t, err)

	sums, err := s.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Summary{
		{Bucket: task.Yesterday},
		{Bucket: task.Today, Total: 2, Completed: 1},
		{Bucket: task.Tomorrow},
	}, sums)

	_, err = s.MoveTaskTo(ctx, a.ID, task.Yesterday)
	require.NoError(t, err)
	sum, err := s.BucketSummary(ctx, task.Yesterday)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)
}

func TestRunRolloverNow(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	mustCreate(t, s, "a", task.Today, task.Easy)
	mustCreate(t, s, "b", task.Tomorrow, task.Easy)

	res, err := s.RunRolloverNow(ctx, rollover.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Migrated)

	res, err = s.RunRolloverNow(ctx, rollover.Options{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	sums, err := s.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sums[0].Total)
	assert.Equal(t, 1, sums[1].Total)
	assert.Equal(t, 0, sums[2].Total)
}

func TestUpdateSettingsReconfiguresScheduler(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	triggers, err := scheduler.OpenTriggers(t.TempDir())
	require.NoError(t, err)
	s.Scheduler = &scheduler.Scheduler{Triggers: triggers}

	_, err = s.UpdateSettings(ctx, func(set *settings.Settings) error {
		set.RolloverHour = 22
		set.RolloverMinute = 45
		return nil
	})
	require.NoError(t, err)
	tr, ok, err := triggers.Get(scheduler.RolloverTrigger)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 22, tr.Hour)
	assert.Equal(t, 45, tr.Minute)

	_, err = s.UpdateSettings(ctx, func(set *settings.Settings) error {
		set.RolloverEnabled = false
		return nil
	})
	require.NoError(t, err)
	_, ok, err = triggers.Get(scheduler.RolloverTrigger)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReport(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	a := mustCreate(t, s, "a", task.Today, task.Hard)
	b := mustCreate(t, s, "b", task.Tomorrow, task.Easy)
	mustCreate(t, s, "open", task.Today, task.Easy)
	_, err := s.CompleteTask(ctx, a.ID)
	require.NoError(t, err)
	now = now.Add(time.Hour)
	_, err = s.CompleteTask(ctx, b.ID)
	require.NoError(t, err)

	res, err := s.Report(ctx, now, now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 7, res.XP)
	require.Len(t, res.Sections, 2)
	assert.Equal(t, task.Today, res.Sections[0].Bucket)
	assert.Equal(t, task.Tomorrow, res.Sections[1].Bucket)

	res, err = s.Report(ctx, now.Add(-30*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestWatchTasksFollowsMutations(t *testing.T) {
	s, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.WatchTasks(ctx, task.Today)
	require.NoError(t, err)
	assert.Empty(t, <-ch)

	mustCreate(t, s, "a", task.Today, task.Easy)
	select {
	case got := <-ch:
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].Title)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}
}

func ids(tasks []*task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
