// Package taskstore owns the task collection: CRUD, completion flags, moves
// between buckets, manual reordering and live bucket queries.
//
// Every operation has an In variant that runs inside a caller's transaction so
// several steps (for example completing a task and awarding its XP) can
// commit together.
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

var (
	// ErrNotFound is returned for operations that need an existing task.
	ErrNotFound = store.ErrNotFound
	// ErrYesterday rejects creating tasks directly in the past bucket.
	ErrYesterday = fmt.Errorf("%w: tasks cannot be created in YESTERDAY", task.ErrInvalid)
)

// Manager reads and writes tasks through a Persistence.
type Manager struct {
	Store store.Persistence
	// Now defaults to time.Now.
	Now func() time.Time
}

func New(p store.Persistence) *Manager {
	return &Manager{Store: p}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *Manager) update(ctx context.Context, fn func(store.Tx) error) error {
	if m.Store == nil {
		return errors.New("taskstore: no persistence configured")
	}
	return m.Store.Update(ctx, fn)
}

func (m *Manager) view(ctx context.Context, fn func(store.Tx) error) error {
	if m.Store == nil {
		return errors.New("taskstore: no persistence configured")
	}
	return m.Store.View(ctx, fn)
}

// Create stores a new task appended to the end of its bucket. An empty bucket
// defaults to TOMORROW; YESTERDAY is rejected.
func (m *Manager) Create(ctx context.Context, t *task.Task) (*task.Task, error) {
	var out *task.Task
	err := m.update(ctx, func(tx store.Tx) error {
		var err error
		out, err = CreateIn(tx, t, m.now())
		return err
	})
	return out, err
}

// CreateIn is Create inside tx. t is not modified.
func CreateIn(tx store.Tx, t *task.Task, now time.Time) (*task.Task, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil task", task.ErrInvalid)
	}
	t = t.Clone()
	t.Title = strings.TrimSpace(t.Title)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Bucket == "" {
		t.Bucket = task.Tomorrow
	}
	if t.Bucket == task.Yesterday {
		return nil, ErrYesterday
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.IsCompleted && t.CompletedAt == nil {
		at := now
		t.CompletedAt = &at
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if _, err := tx.Task(t.ID); err == nil {
		return nil, fmt.Errorf("%w: id %s already exists", task.ErrInvalid, t.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	top, err := tx.MaxOrderKey(t.Bucket)
	if err != nil {
		return nil, err
	}
	t.OrderKey = top + 1
	if err := tx.PutTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns a single task.
func (m *Manager) Get(ctx context.Context, id string) (*task.Task, error) {
	var out *task.Task
	err := m.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Task(id)
		return err
	})
	return out, err
}

// Update replaces the full record of an existing task. The caller's OrderKey
// is ignored: a task keeps its key within its bucket, and a change of bucket
// appends it to the end of the new one. Keys change only through Reorder and
// moves.
func (m *Manager) Update(ctx context.Context, t *task.Task) (*task.Task, error) {
	var out *task.Task
	err := m.update(ctx, func(tx store.Tx) error {
		var err error
		out, err = UpdateIn(tx, t)
		return err
	})
	return out, err
}

// UpdateIn is Update inside tx.
func UpdateIn(tx store.Tx, t *task.Task) (*task.Task, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil task", task.ErrInvalid)
	}
	cur, err := tx.Task(t.ID)
	if err != nil {
		return nil, err
	}
	next := t.Clone()
	next.Title = strings.TrimSpace(next.Title)
	if next.CreatedAt.IsZero() {
		next.CreatedAt = cur.CreatedAt
	}
	if next.Bucket != cur.Bucket {
		top, err := tx.MaxOrderKey(next.Bucket)
		if err != nil {
			return nil, err
		}
		next.OrderKey = top + 1
	} else {
		next.OrderKey = cur.OrderKey
	}
	if err := tx.PutTask(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete removes a task. Deleting a missing id succeeds.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.update(ctx, func(tx store.Tx) error {
		_, err := tx.DeleteTask(id)
		return err
	})
}

// MarkCompleted sets the completion flag. changed is false when the task was
// already complete.
func (m *Manager) MarkCompleted(ctx context.Context, id string) (t *task.Task, changed bool, err error) {
	err = m.update(ctx, func(tx store.Tx) error {
		t, changed, err = MarkCompletedIn(tx, id, m.now())
		return err
	})
	return t, changed, err
}

// MarkCompletedIn is MarkCompleted inside tx.
func MarkCompletedIn(tx store.Tx, id string, now time.Time) (*task.Task, bool, error) {
	t, err := tx.Task(id)
	if err != nil {
		return nil, false, err
	}
	if !t.Complete(now) {
		return t, false, nil
	}
	if err := tx.PutTask(t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// MarkIncomplete clears the completion flag. changed is false when the task
// was not complete.
func (m *Manager) MarkIncomplete(ctx context.Context, id string) (t *task.Task, changed bool, err error) {
	err = m.update(ctx, func(tx store.Tx) error {
		t, changed, err = MarkIncompleteIn(tx, id)
		return err
	})
	return t, changed, err
}

// MarkIncompleteIn is MarkIncomplete inside tx.
func MarkIncompleteIn(tx store.Tx, id string) (*task.Task, bool, error) {
	t, err := tx.Task(id)
	if err != nil {
		return nil, false, err
	}
	if !t.Uncomplete() {
		return t, false, nil
	}
	if err := tx.PutTask(t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// MoveToBucket reassigns a task to b, appending it to the end of b. Moving a
// task to the bucket it is already in leaves it untouched.
func (m *Manager) MoveToBucket(ctx context.Context, id string, b task.Bucket) (*task.Task, error) {
	var out *task.Task
	err := m.update(ctx, func(tx store.Tx) error {
		var err error
		out, err = MoveToBucketIn(tx, id, b)
		return err
	})
	return out, err
}

// MoveToBucketIn is MoveToBucket inside tx.
func MoveToBucketIn(tx store.Tx, id string, b task.Bucket) (*task.Task, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: day %q", task.ErrInvalid, b)
	}
	t, err := tx.Task(id)
	if err != nil {
		return nil, err
	}
	if t.Bucket == b {
		return t, nil
	}
	top, err := tx.MaxOrderKey(b)
	if err != nil {
		return nil, err
	}
	if err := tx.SetBucket([]string{id}, b, top+1); err != nil {
		return nil, err
	}
	return tx.Task(id)
}

// Move shifts a task one bucket in dir. moved is false when the task is
// already at that edge of the window.
func (m *Manager) Move(ctx context.Context, id string, dir task.Direction) (t *task.Task, moved bool, err error) {
	err = m.update(ctx, func(tx store.Tx) error {
		cur, err := tx.Task(id)
		if err != nil {
			return err
		}
		target, ok := cur.Bucket.Neighbor(dir)
		if !ok {
			t = cur
			return nil
		}
		t, err = MoveToBucketIn(tx, id, target)
		moved = err == nil
		return err
	})
	return t, moved, err
}

// Query returns bucket b ordered by mode.
func (m *Manager) Query(ctx context.Context, b task.Bucket, mode ordering.Mode, reverse bool) ([]*task.Task, error) {
	var out []*task.Task
	err := m.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = QueryIn(tx, b, mode, reverse)
		return err
	})
	return out, err
}

// QueryIn is Query inside tx.
func QueryIn(tx store.Tx, b task.Bucket, mode ordering.Mode, reverse bool) ([]*task.Task, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: day %q", task.ErrInvalid, b)
	}
	tasks, err := tx.Bucket(b)
	if err != nil {
		return nil, err
	}
	ordering.Sort(tasks, mode, reverse)
	return tasks, nil
}

// Summary counts the tasks in b and how many are complete.
func (m *Manager) Summary(ctx context.Context, b task.Bucket) (total, completed int, err error) {
	err = m.view(ctx, func(tx store.Tx) error {
		total, completed, err = tx.Count(b)
		return err
	})
	return total, completed, err
}

// Reorder persists ids as the manual order of bucket b and switches the sort
// preference to MANUAL. ids must name every task in b exactly once.
func (m *Manager) Reorder(ctx context.Context, b task.Bucket, ids []string) error {
	return m.update(ctx, func(tx store.Tx) error {
		return ReorderIn(tx, b, ids)
	})
}

// ReorderIn is Reorder inside tx.
func ReorderIn(tx store.Tx, b task.Bucket, ids []string) error {
	if !b.Valid() {
		return fmt.Errorf("%w: day %q", task.ErrInvalid, b)
	}
	current, err := tx.BucketIDs(b)
	if err != nil {
		return err
	}
	keys, err := ordering.Keys(current, ids)
	if err != nil {
		return err
	}
	if err := tx.SetOrderKeys(keys); err != nil {
		return err
	}
	s, err := tx.Settings()
	if err != nil {
		return err
	}
	if s.SortType == ordering.Manual {
		return nil
	}
	s.SortType = ordering.Manual
	return tx.PutSettings(s)
}

// Watch emits bucket b ordered by mode, then again after every change that
// touches b, until ctx is done. Intermediate states may be skipped when the
// reader is slow, but the latest state is always delivered.
func (m *Manager) Watch(ctx context.Context, b task.Bucket, mode ordering.Mode, reverse bool) (<-chan []*task.Task, error) {
	return m.watch(ctx, b, func(tx store.Tx) (ordering.Mode, bool, error) {
		return mode, reverse, nil
	})
}

// WatchPreferred is Watch using the stored sort preference, re-read on every
// change so a new preference takes effect immediately.
func (m *Manager) WatchPreferred(ctx context.Context, b task.Bucket) (<-chan []*task.Task, error) {
	return m.watch(ctx, b, func(tx store.Tx) (ordering.Mode, bool, error) {
		s, err := tx.Settings()
		return s.SortType, s.ReverseSort, err
	})
}

func (m *Manager) watch(ctx context.Context, b task.Bucket, pref func(store.Tx) (ordering.Mode, bool, error)) (<-chan []*task.Task, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: day %q", task.ErrInvalid, b)
	}
	if m.Store == nil {
		return nil, errors.New("taskstore: no persistence configured")
	}
	events, err := m.Store.Watch(ctx)
	if err != nil {
		return nil, err
	}
	read := func() ([]*task.Task, error) {
		var out []*task.Task
		err := m.view(ctx, func(tx store.Tx) error {
			mode, reverse, err := pref(tx)
			if err != nil {
				return err
			}
			out, err = QueryIn(tx, b, mode, reverse)
			return err
		})
		return out, err
	}
	first, err := read()
	if err != nil {
		return nil, err
	}

	out := make(chan []*task.Task, 1)
	out <- first
	go func() {
		defer close(out)
		for ev := range events {
			if !ev.Touches(b) && !ev.TouchesSettings() {
				continue
			}
			tasks, err := read()
			if err != nil {
				continue
			}
			select {
			case out <- tasks:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
