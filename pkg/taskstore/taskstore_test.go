package taskstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	p, err := store.Open(filepath.Join(t.TempDir(), "nexday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	return &Manager{Store: p, Now: c.now}
}

func create(t *testing.T, m *Manager, title string, b task.Bucket, d task.Difficulty) *task.Task {
	t.Helper()
	in := task.New(title, d)
	in.Bucket = b
	out, err := m.Create(context.Background(), in)
	require.NoError(t, err)
	return out
}

func titles(tasks []*task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestCreateDefaultsAndKeys(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	a, err := m.Create(ctx, &task.Task{Title: "  a  ", Difficulty: task.Easy})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "a", a.Title)
	assert.Equal(t, task.Tomorrow, a.Bucket)
	assert.Equal(t, int64(1), a.OrderKey)
	assert.False(t, a.CreatedAt.IsZero())

	b := create(t, m, "b", task.Tomorrow, task.Hard)
	assert.Equal(t, int64(2), b.OrderKey)

	c := create(t, m, "c", task.Today, task.Hard)
	assert.Equal(t, int64(1), c.OrderKey)
}

func TestCreateRejects(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	in := task.New("past", task.Easy)
	in.Bucket = task.Yesterday
	_, err := m.Create(ctx, in)
	assert.ErrorIs(t, err, ErrYesterday)
	assert.ErrorIs(t, err, task.ErrInvalid)

	_, err = m.Create(ctx, task.New("", task.Easy))
	assert.ErrorIs(t, err, task.ErrInvalid)

	dup := create(t, m, "dup", task.Today, task.Easy)
	_, err = m.Create(ctx, dup)
	assert.ErrorIs(t, err, task.ErrInvalid)
}

func TestUpdateReplacesRecord(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	a := create(t, m, "a", task.Today, task.Easy)

	edit := a.Clone()
	edit.Title = "renamed"
	edit.Description = ""
	edit.Difficulty = task.VeryHard
	_, err := m.Update(ctx, edit)
	require.NoError(t, err)

	got, err := m.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, task.VeryHard, got.Difficulty)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

	missing := task.New("ghost", task.Easy)
	_, err = m.Update(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateKeepsOrderAfterReorder(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	a := create(t, m, "a", task.Today, task.Easy)
	b := create(t, m, "b", task.Today, task.Easy)
	c := create(t, m, "c", task.Today, task.Easy)

	stale, err := m.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, m.Reorder(ctx, task.Today, []string{c.ID, b.ID, a.ID}))

	stale.Title = "a renamed"
	got, err := m.Update(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.OrderKey)

	tasks, err := m.Query(ctx, task.Today, ordering.Manual, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a renamed"}, titles(tasks))
}

func TestDeleteIsIdempotent(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	a := create(t, m, "a", task.Today, task.Easy)

	require.NoError(t, m.Delete(ctx, a.ID))
	require.NoError(t, m.Delete(ctx, a.ID))
	_, err := m.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompletionFlags(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	a := create(t, m, "a", task.Today, task.Easy)

	got, changed, err := m.MarkCompleted(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)

	_, changed, err = m.MarkCompleted(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, changed, err = m.MarkIncomplete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, got.IsCompleted)
	assert.Nil(t, got.CompletedAt)

	_, _, err = m.MarkCompleted(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveAdjacentOnly(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	existing := create(t, m, "existing", task.Today, task.Easy)
	a := create(t, m, "a", task.Tomorrow, task.Easy)

	got, moved, err := m.Move(ctx, a.ID, task.Right)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, task.Tomorrow, got.Bucket)

	got, moved, err = m.Move(ctx, a.ID, task.Left)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, task.Today, got.Bucket)
	assert.Greater(t, got.OrderKey, existing.OrderKey)

	got, moved, err = m.Move(ctx, a.ID, task.Left)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, task.Yesterday, got.Bucket)

	_, moved, err = m.Move(ctx, a.ID, task.Left)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestReorderPersistsAndSwitchesToManual(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	a := create(t, m, "A", task.Today, task.Easy)
	b := create(t, m, "B", task.Today, task.VeryHard)
	c := create(t, m, "C", task.Today, task.Medium)

	require.NoError(t, m.Store.Update(ctx, func(tx store.Tx) error {
		s, err := tx.Settings()
		if err != nil {
			return err
		}
		s.SortType = ordering.Difficulty
		return tx.PutSettings(s)
	}))

	require.NoError(t, m.Reorder(ctx, task.Today, []string{c.ID, a.ID, b.ID}))

	got, err := m.Query(ctx, task.Today, ordering.Manual, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, titles(got))

	require.NoError(t, m.Store.View(ctx, func(tx store.Tx) error {
		s, err := tx.Settings()
		require.NoError(t, err)
		assert.Equal(t, ordering.Manual, s.SortType)
		return nil
	}))

	// Creation times are untouched by reordering.
	fresh, err := m.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(fresh.CreatedAt))
}

func TestReorderRejectsPartial(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	a := create(t, m, "A", task.Today, task.Easy)
	create(t, m, "B", task.Today, task.Easy)

	err := m.Reorder(ctx, task.Today, []string{a.ID})
	assert.ErrorIs(t, err, ordering.ErrNotPermutation)
	err = m.Reorder(ctx, task.Today, []string{a.ID, a.ID})
	assert.ErrorIs(t, err, ordering.ErrNotPermutation)
}

func TestQueryDeterministic(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	for _, d := range []task.Difficulty{task.Easy, task.Hard, task.Medium, task.Hard} {
		create(t, m, string(d), task.Today, d)
	}
	first, err := m.Query(ctx, task.Today, ordering.Difficulty, false)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := m.Query(ctx, task.Today, ordering.Difficulty, false)
		require.NoError(t, err)
		assert.Equal(t, titles(first), titles(again))
	}
	assert.Equal(t, []string{"HARD", "HARD", "MEDIUM", "EASY"}, titles(first))
}

func TestSummary(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	a := create(t, m, "a", task.Today, task.Easy)
	create(t, m, "b", task.Today, task.Easy)
	_, _, err := m.MarkCompleted(ctx, a.ID)
	require.NoError(t, err)

	total, done, err := m.Summary(ctx, task.Today)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, done)
}

func receive(t *testing.T, ch <-chan []*task.Task) []*task.Task {
	t.Helper()
	select {
	case tasks, ok := <-ch:
		require.True(t, ok)
		return tasks
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bucket update")
	}
	return nil
}

func TestWatchReflectsMutations(t *testing.T) {
	m := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Watch(ctx, task.Today, ordering.Manual, false)
	require.NoError(t, err)
	assert.Empty(t, receive(t, ch))

	a := create(t, m, "a", task.Today, task.Easy)
	assert.Equal(t, []string{"a"}, titles(receive(t, ch)))

	// Changes to other buckets do not wake the watcher.
	create(t, m, "elsewhere", task.Tomorrow, task.Easy)
	_, _, err = m.Move(ctx, a.ID, task.Right)
	require.NoError(t, err)
	assert.Empty(t, receive(t, ch))
}

func TestWatchPreferredFollowsSettings(t *testing.T) {
	m := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	create(t, m, "easy", task.Today, task.Easy)
	create(t, m, "hard", task.Today, task.Hard)

	ch, err := m.WatchPreferred(ctx, task.Today)
	require.NoError(t, err)
	assert.Equal(t, []string{"easy", "hard"}, titles(receive(t, ch)))

	require.NoError(t, m.Store.Update(ctx, func(tx store.Tx) error {
		s, err := tx.Settings()
		if err != nil {
			return err
		}
		s.SortType = ordering.Difficulty
		return tx.PutSettings(s)
	}))
	assert.Equal(t, []string{"hard", "easy"}, titles(receive(t, ch)))
}
