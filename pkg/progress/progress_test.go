package progress

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

func newManager(t *testing.T) (*Manager, store.Persistence) {
	t.Helper()
	p, err := store.Open(filepath.Join(t.TempDir(), "nexday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return New(p), p
}

func TestGetInitializes(t *testing.T) {
	m, _ := newManager(t)
	snap, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, progression.Snapshot{TotalXP: 0, CurrentLevel: 1, XPToNextLevel: 2}, snap)
}

// countingUpdates counts write transactions.
type countingUpdates struct {
	store.Persistence
	n atomic.Int32
}

func (c *countingUpdates) Update(ctx context.Context, fn func(store.Tx) error) error {
	c.n.Add(1)
	return c.Persistence.Update(ctx, fn)
}

func TestGetReadsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	m, p := newManager(t)

	fresh := &countingUpdates{Persistence: p}
	_, err := New(fresh).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fresh.n.Load(), "a missing record is written once")

	_, err = m.AddXP(ctx, task.Hard)
	require.NoError(t, err)

	c := &countingUpdates{Persistence: p}
	snap, err := New(c).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.At(5), snap)
	assert.Zero(t, c.n.Load())
}

func TestAddXPLevelsUp(t *testing.T) {
	m, _ := newManager(t)
	res, err := m.AddXP(context.Background(), task.Medium)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Progress.TotalXP)
	assert.Equal(t, 1, res.PreviousLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LeveledUp)
	assert.False(t, res.LeveledDown)
	assert.Equal(t, 3, res.Delta)
}

func TestAddThenSubtractRestores(t *testing.T) {
	ctx := context.Background()
	for _, d := range task.Difficulties() {
		t.Run(string(d), func(t *testing.T) {
			m, _ := newManager(t)
			_, err := m.AddXP(ctx, task.VeryHard)
			require.NoError(t, err)
			before, err := m.Get(ctx)
			require.NoError(t, err)

			_, err = m.AddXP(ctx, d)
			require.NoError(t, err)
			res, err := m.SubtractXP(ctx, d)
			require.NoError(t, err)
			assert.Equal(t, before, res.Progress)
		})
	}
}

func TestSubtractClampsAtZero(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.AddXP(ctx, task.VeryEasy)
	require.NoError(t, err)

	res, err := m.SubtractXP(ctx, task.VeryHard)
	require.NoError(t, err)
	assert.Equal(t, progression.At(0), res.Progress)
	assert.Equal(t, -1, res.Delta)
	assert.False(t, res.LeveledDown)
}

func TestSubtractLevelsDown(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.AddXP(ctx, task.Easy)
	require.NoError(t, err)

	res, err := m.SubtractXP(ctx, task.VeryEasy)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PreviousLevel)
	assert.Equal(t, 1, res.NewLevel)
	assert.True(t, res.LeveledDown)
}

func TestReset(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := m.AddXP(ctx, task.VeryHard)
		require.NoError(t, err)
	}
	res, err := m.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.At(0), res.Progress)
	assert.True(t, res.LeveledDown)
}

func TestFailedWriteLeavesProgressUnchanged(t *testing.T) {
	m, p := newManager(t)
	ctx := context.Background()
	_, err := m.AddXP(ctx, task.Hard)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = p.Update(ctx, func(tx store.Tx) error {
		if _, err := ApplyIn(tx, 8); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	snap, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.At(5), snap)
}

func TestWatchEmitsChanges(t *testing.T) {
	m, _ := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Watch(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.At(0), <-ch)

	_, err = m.AddXP(ctx, task.Hard)
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, progression.At(5), snap)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress")
	}
}
