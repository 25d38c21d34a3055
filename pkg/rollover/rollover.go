// Package rollover shifts the three-day window: TODAY becomes YESTERDAY,
// TOMORROW becomes TODAY, and YESTERDAY tasks that have completed a full cycle
// are expired. The whole run commits as one transaction or not at all.
package rollover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
	"tableflip.dev/nexday/pkg/timeutil"
)

// DefaultExpiry is how old a YESTERDAY task must be before it is deleted.
const DefaultExpiry = 24 * time.Hour

// State is the orchestrator's position in a run.
type State int

const (
	Idle State = iota
	Migrating
	Expiring
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Migrating:
		return "MIGRATING"
	case Expiring:
		return "EXPIRING"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options tune a single run.
type Options struct {
	// Force migrates even when this period has already rolled over.
	Force bool
}

// Result reports what a committed run changed.
type Result struct {
	Migrated int `json:"migrated"`
	Deleted  int `json:"deleted"`
	// Skipped is set when migration was suppressed because the current period
	// had already rolled over.
	Skipped  bool      `json:"skipped"`
	Boundary time.Time `json:"boundary"`
	RanAt    time.Time `json:"ranAt"`
}

// Orchestrator runs rollovers against a Persistence. Runs are serialized.
type Orchestrator struct {
	Store store.Persistence
	// Now defaults to time.Now. Its location decides where the configured
	// rollover time falls.
	Now func() time.Time
	// Expiry defaults to DefaultExpiry.
	Expiry time.Duration
	Logger *slog.Logger

	run   sync.Mutex
	mu    sync.Mutex
	state State
}

func New(p store.Persistence) *Orchestrator {
	return &Orchestrator{Store: p}
}

// State reports the current state. It is Failed after an unsuccessful run
// until the next run starts.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	if prev != s {
		o.logger().Debug("rollover: state", "from", prev.String(), "to", s.String())
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run performs one rollover. A run in a period that already rolled over only
// expires stale tasks, so repeated runs are safe.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Result, error) {
	if o.Store == nil {
		return Result{}, errors.New("rollover: no persistence configured")
	}
	o.run.Lock()
	defer o.run.Unlock()

	now := o.now()
	expiry := o.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	var res Result
	err := o.Store.Update(ctx, func(tx store.Tx) error {
		res = Result{RanAt: now.UTC()}

		s, err := tx.Settings()
		if err != nil {
			return err
		}
		res.Boundary = timeutil.PreviousDaily(now, s.RolloverHour, s.RolloverMinute).UTC()

		marker, err := tx.RolloverMarker()
		if err != nil {
			return err
		}
		if !opts.Force && !marker.IsZero() && !marker.Before(res.Boundary) {
			res.Skipped = true
		} else {
			o.setState(Migrating)
			if res.Migrated, err = migrate(tx); err != nil {
				return err
			}
			if err := tx.PutRolloverMarker(now); err != nil {
				return err
			}
		}

		o.setState(Expiring)
		res.Deleted, err = tx.DeleteCreatedBefore(task.Yesterday, now.Add(-expiry))
		return err
	})
	if err != nil {
		o.setState(Failed)
		o.logger().Error("rollover: failed", "err", err)
		return Result{}, fmt.Errorf("rollover: %w", err)
	}
	o.setState(Idle)
	o.logger().Info("rollover: complete",
		"migrated", res.Migrated, "deleted", res.Deleted, "skipped", res.Skipped)
	return res, nil
}

// migrate snapshots both buckets before moving anything so no task moves
// twice.
func migrate(tx store.Tx) (int, error) {
	today, err := tx.BucketIDs(task.Today)
	if err != nil {
		return 0, err
	}
	tomorrow, err := tx.BucketIDs(task.Tomorrow)
	if err != nil {
		return 0, err
	}

	top, err := tx.MaxOrderKey(task.Yesterday)
	if err != nil {
		return 0, err
	}
	if err := tx.SetBucket(today, task.Yesterday, top+1); err != nil {
		return 0, err
	}

	top, err = tx.MaxOrderKey(task.Today)
	if err != nil {
		return 0, err
	}
	if err := tx.SetBucket(tomorrow, task.Today, top+1); err != nil {
		return 0, err
	}
	return len(today) + len(tomorrow), nil
}
