package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tableflip.dev/nexday/pkg/notify"
	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/progress"
	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/rollover"
	"tableflip.dev/nexday/pkg/scheduler"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
	"tableflip.dev/nexday/pkg/taskstore"
)

// Service provides the planner operations shared by the CLI and the MCP
// server. It wraps persistence, progress and rollover so every surface applies
// the same rules.
type Service struct {
	Persistence store.Persistence
	// Notifier receives level-up notifications. Optional.
	Notifier notify.Notifier
	// Scheduler, when set, is reconfigured after every settings change.
	Scheduler *scheduler.Scheduler
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger

	once     sync.Once
	rollover *rollover.Orchestrator
}

var (
	ErrNoPersistence = errors.New("app: no persistence configured")
	ErrAmbiguousID   = errors.New("app: id prefix matches more than one task")
)

// Completion is the outcome of completing or uncompleting a task.
type Completion struct {
	Task *task.Task `json:"task"`
	// Changed is false when the task was already in the requested state.
	Changed  bool            `json:"changed"`
	Progress progress.Result `json:"progress"`
}

// Summary counts one bucket.
type Summary struct {
	Bucket    task.Bucket `json:"dayCategory"`
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) tasks() (*taskstore.Manager, error) {
	if s.Persistence == nil {
		return nil, ErrNoPersistence
	}
	return &taskstore.Manager{Store: s.Persistence, Now: s.Now}, nil
}

func (s *Service) update(ctx context.Context, fn func(store.Tx) error) error {
	if s.Persistence == nil {
		return ErrNoPersistence
	}
	return s.Persistence.Update(ctx, fn)
}

func (s *Service) view(ctx context.Context, fn func(store.Tx) error) error {
	if s.Persistence == nil {
		return ErrNoPersistence
	}
	return s.Persistence.View(ctx, fn)
}

// Orchestrator returns the rollover orchestrator bound to this service.
func (s *Service) Orchestrator() *rollover.Orchestrator {
	s.once.Do(func() {
		s.rollover = &rollover.Orchestrator{
			Store:  s.Persistence,
			Now:    s.Now,
			Logger: s.Logger,
		}
	})
	return s.rollover
}

// Tasks lists a bucket in the given order.
func (s *Service) Tasks(ctx context.Context, b task.Bucket, mode ordering.Mode, reverse bool) ([]*task.Task, error) {
	m, err := s.tasks()
	if err != nil {
		return nil, err
	}
	return m.Query(ctx, b, mode, reverse)
}

// PreferredTasks lists a bucket in the stored sort order.
func (s *Service) PreferredTasks(ctx context.Context, b task.Bucket) ([]*task.Task, error) {
	var out []*task.Task
	err := s.view(ctx, func(tx store.Tx) error {
		set, err := tx.Settings()
		if err != nil {
			return err
		}
		out, err = taskstore.QueryIn(tx, b, set.SortType, set.ReverseSort)
		return err
	})
	return out, err
}

// WatchTasks streams a bucket in the stored sort order.
func (s *Service) WatchTasks(ctx context.Context, b task.Bucket) (<-chan []*task.Task, error) {
	m, err := s.tasks()
	if err != nil {
		return nil, err
	}
	return m.WatchPreferred(ctx, b)
}

// Watch subscribes to raw persistence change events.
func (s *Service) Watch(ctx context.Context) (<-chan store.Event, error) {
	if s.Persistence == nil {
		return nil, ErrNoPersistence
	}
	return s.Persistence.Watch(ctx)
}

// Task returns the task whose id is id or uniquely starts with id.
func (s *Service) Task(ctx context.Context, id string) (*task.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", taskstore.ErrNotFound)
	}
	var out *task.Task
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = resolve(tx, id)
		return err
	})
	return out, err
}

func resolve(tx store.Tx, id string) (*task.Task, error) {
	t, err := tx.Task(id)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	all, err := tx.Tasks()
	if err != nil {
		return nil, err
	}
	var match *task.Task
	for _, cand := range all {
		if !strings.HasPrefix(cand.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
		match = cand
	}
	if match == nil {
		return nil, fmt.Errorf("%w: task %s", taskstore.ErrNotFound, id)
	}
	return match, nil
}

// CreateTask stores a new task.
func (s *Service) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	m, err := s.tasks()
	if err != nil {
		return nil, err
	}
	return m.Create(ctx, t)
}

// UpdateTask replaces a task. A change of completion state through an edit
// adjusts XP the same way CompleteTask and UncompleteTask do, and a difficulty
// change on a completed task trades the old award for the new one.
func (s *Service) UpdateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil task", task.ErrInvalid)
	}
	var (
		out *task.Task
		res progress.Result
	)
	err := s.update(ctx, func(tx store.Tx) error {
		cur, err := tx.Task(t.ID)
		if err != nil {
			return err
		}
		next := t.Clone()
		switch {
		case next.IsCompleted && !cur.IsCompleted:
			if next.CompletedAt == nil {
				at := s.now()
				next.CompletedAt = &at
			}
			res, err = progress.ApplyIn(tx, progression.XPDelta(next.Difficulty))
		case !next.IsCompleted && cur.IsCompleted:
			next.CompletedAt = nil
			res, err = progress.ApplyIn(tx, -progression.XPDelta(cur.Difficulty))
		case next.IsCompleted && cur.Difficulty != next.Difficulty:
			res, err = progress.ApplyIn(tx, progression.XPDelta(next.Difficulty)-progression.XPDelta(cur.Difficulty))
		}
		if err != nil {
			return err
		}
		out, err = taskstore.UpdateIn(tx, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, res)
	return out, nil
}

// DeleteTask removes a task. Deleting a missing id succeeds.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	m, err := s.tasks()
	if err != nil {
		return err
	}
	return m.Delete(ctx, id)
}

// CompleteTask marks a task complete and awards its XP in one transaction.
// Completing an already complete task awards nothing.
func (s *Service) CompleteTask(ctx context.Context, id string) (Completion, error) {
	var c Completion
	err := s.update(ctx, func(tx store.Tx) error {
		t, changed, err := taskstore.MarkCompletedIn(tx, id, s.now().UTC())
		if err != nil {
			return err
		}
		c = Completion{Task: t, Changed: changed}
		if !changed {
			c.Progress, err = progress.ApplyIn(tx, 0)
			return err
		}
		c.Progress, err = progress.ApplyIn(tx, progression.XPDelta(t.Difficulty))
		return err
	})
	if err != nil {
		return Completion{}, err
	}
	s.announce(ctx, c.Progress)
	return c, nil
}

// UncompleteTask reopens a task and takes back its XP. Reopening an open task
// changes nothing.
func (s *Service) UncompleteTask(ctx context.Context, id string) (Completion, error) {
	var c Completion
	err := s.update(ctx, func(tx store.Tx) error {
		t, changed, err := taskstore.MarkIncompleteIn(tx, id)
		if err != nil {
			return err
		}
		c = Completion{Task: t, Changed: changed}
		delta := 0
		if changed {
			delta = -progression.XPDelta(t.Difficulty)
		}
		c.Progress, err = progress.ApplyIn(tx, delta)
		return err
	})
	if err != nil {
		return Completion{}, err
	}
	return c, nil
}

// announce forwards a level-up to the notifier once the change is committed.
func (s *Service) announce(ctx context.Context, res progress.Result) {
	if !res.LeveledUp || s.Notifier == nil {
		return
	}
	set, err := s.Settings(ctx)
	if err != nil {
		s.logger().Warn("app: read settings for notification", "err", err)
		return
	}
	if !set.NotificationsEnabled {
		return
	}
	s.Notifier.NotifyLevelUp(ctx, res.NewLevel, res.Progress.TotalXP)
}

// MoveTask shifts a task one bucket left or right. moved is false at the edge
// of the window.
func (s *Service) MoveTask(ctx context.Context, id string, dir task.Direction) (*task.Task, bool, error) {
	m, err := s.tasks()
	if err != nil {
		return nil, false, err
	}
	return m.Move(ctx, id, dir)
}

// MoveTaskTo reassigns a task to any bucket.
func (s *Service) MoveTaskTo(ctx context.Context, id string, b task.Bucket) (*task.Task, error) {
	m, err := s.tasks()
	if err != nil {
		return nil, err
	}
	return m.MoveToBucket(ctx, id, b)
}

// ReorderBucket stores ids as the manual order of b and switches sorting to
// MANUAL.
func (s *Service) ReorderBucket(ctx context.Context, b task.Bucket, ids []string) error {
	m, err := s.tasks()
	if err != nil {
		return err
	}
	return m.Reorder(ctx, b, ids)
}

// BucketSummary counts a bucket's tasks.
func (s *Service) BucketSummary(ctx context.Context, b task.Bucket) (Summary, error) {
	m, err := s.tasks()
	if err != nil {
		return Summary{}, err
	}
	total, done, err := m.Summary(ctx, b)
	return Summary{Bucket: b, Total: total, Completed: done}, err
}

// Summaries counts every bucket, left to right.
func (s *Service) Summaries(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0, 3)
	for _, b := range task.Buckets() {
		sum, err := s.BucketSummary(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// Progress returns the current progress.
func (s *Service) Progress(ctx context.Context) (progression.Snapshot, error) {
	if s.Persistence == nil {
		return progression.Snapshot{}, ErrNoPersistence
	}
	return progress.New(s.Persistence).Get(ctx)
}

// WatchProgress streams progress changes.
func (s *Service) WatchProgress(ctx context.Context) (<-chan progression.Snapshot, error) {
	if s.Persistence == nil {
		return nil, ErrNoPersistence
	}
	return progress.New(s.Persistence).Watch(ctx)
}

// ResetProgress returns progress to level one.
func (s *Service) ResetProgress(ctx context.Context) (progress.Result, error) {
	if s.Persistence == nil {
		return progress.Result{}, ErrNoPersistence
	}
	return progress.New(s.Persistence).Reset(ctx)
}

// Settings returns the stored preferences.
func (s *Service) Settings(ctx context.Context) (settings.Settings, error) {
	var out settings.Settings
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Settings()
		return err
	})
	return out, err
}

// UpdateSettings applies fn to the stored preferences and reschedules the
// daily triggers.
func (s *Service) UpdateSettings(ctx context.Context, fn func(*settings.Settings) error) (settings.Settings, error) {
	var out settings.Settings
	err := s.update(ctx, func(tx store.Tx) error {
		cur, err := tx.Settings()
		if err != nil {
			return err
		}
		if err := fn(&cur); err != nil {
			return err
		}
		out = cur.Normalize()
		return tx.PutSettings(out)
	})
	if err != nil {
		return settings.Settings{}, err
	}
	if s.Scheduler != nil {
		if err := s.Scheduler.Configure(out); err != nil {
			return out, fmt.Errorf("app: reschedule: %w", err)
		}
	}
	return out, nil
}

// SetSort stores the sort preference.
func (s *Service) SetSort(ctx context.Context, mode ordering.Mode, reverse bool) (settings.Settings, error) {
	if !mode.Valid() {
		return settings.Settings{}, fmt.Errorf("app: unknown sort %q", mode)
	}
	return s.UpdateSettings(ctx, func(set *settings.Settings) error {
		set.SortType = mode
		set.ReverseSort = reverse
		return nil
	})
}

// RunRolloverNow runs the rollover immediately with the same rules as the
// scheduled run.
func (s *Service) RunRolloverNow(ctx context.Context, opts rollover.Options) (rollover.Result, error) {
	if s.Persistence == nil {
		return rollover.Result{}, ErrNoPersistence
	}
	return s.Orchestrator().Run(ctx, opts)
}
