package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/task"
)

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return Event{}
}

func TestWatchReportsCommittedBuckets(t *testing.T) {
	p := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	tk := newTask("hello", task.Today, time.Now())
	require.NoError(t, p.Update(ctx, func(tx Tx) error { return tx.PutTask(tk) }))

	ev := nextEvent(t, ch)
	assert.True(t, ev.Touches(task.Today))
	assert.False(t, ev.Touches(task.Tomorrow))
	assert.False(t, ev.TouchesProgress())

	require.NoError(t, p.Update(ctx, func(tx Tx) error {
		return tx.SetBucket([]string{tk.ID}, task.Tomorrow, 1)
	}))
	ev = nextEvent(t, ch)
	assert.Equal(t, []task.Bucket{task.Today, task.Tomorrow}, ev.Buckets)
}

func TestWatchMergesWhileConsumerIsBusy(t *testing.T) {
	p := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Update(ctx, func(tx Tx) error {
		return tx.PutTask(newTask("a", task.Today, time.Now()))
	}))
	require.NoError(t, p.Update(ctx, func(tx Tx) error {
		return tx.PutProgress(progression.At(5))
	}))
	require.NoError(t, p.Update(ctx, func(tx Tx) error {
		return tx.PutTask(newTask("b", task.Tomorrow, time.Now()))
	}))

	seen := newEvent()
	deadline := time.After(2 * time.Second)
	for !(seen.progress && len(seen.buckets) == 2) {
		select {
		case ev := <-ch:
			seen.merge(ev)
		case <-deadline:
			t.Fatalf("missing changes, saw %+v", seen.event())
		}
	}
}

func TestWatchSkipsRolledBackWork(t *testing.T) {
	p := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	require.NoError(t, err)

	_ = p.Update(ctx, func(tx Tx) error {
		_ = tx.PutTask(newTask("a", task.Today, time.Now()))
		return assert.AnError
	})
	require.NoError(t, p.Update(ctx, func(tx Tx) error {
		return tx.PutProgress(progression.At(1))
	}))

	ev := nextEvent(t, ch)
	assert.True(t, ev.Progress)
	assert.Empty(t, ev.Buckets)
}

func TestWatchSeesOtherProcessWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexday.db")
	watching, err := Open(path)
	require.NoError(t, err)
	defer watching.Close()
	writer, err := Open(path)
	require.NoError(t, err)
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := watching.Watch(ctx)
	require.NoError(t, err)

	// Let the file watch settle before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, writer.Update(ctx, func(tx Tx) error {
		return tx.PutTask(newTask("remote", task.Today, time.Now()))
	}))

	ev := nextEvent(t, ch)
	assert.True(t, ev.Invalidated)
	assert.True(t, ev.Touches(task.Yesterday))
}

func TestWatchClosesOnCancel(t *testing.T) {
	p := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Watch(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestEventThrottleCoalesces(t *testing.T) {
	th := newEventThrottle(20 * time.Millisecond)
	defer th.Stop()

	got := make(chan Event, 4)
	th.Enqueue(Event{Buckets: []task.Bucket{task.Today}}, func(ev Event) { got <- ev })
	th.Enqueue(Event{Settings: true}, func(ev Event) { got <- ev })

	ev := nextEvent(t, got)
	assert.Equal(t, []task.Bucket{task.Today}, ev.Buckets)
	assert.True(t, ev.Settings)
	select {
	case extra := <-got:
		t.Fatalf("unexpected second event %+v", extra)
	case <-time.After(60 * time.Millisecond):
	}
}
