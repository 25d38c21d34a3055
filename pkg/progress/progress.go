// Package progress owns the single progress record and applies XP changes to
// it.
package progress

import (
	"context"

	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

// Result describes one XP change.
type Result struct {
	Progress      progression.Snapshot `json:"progress"`
	PreviousLevel int                  `json:"previousLevel"`
	NewLevel      int                  `json:"newLevel"`
	LeveledUp     bool                 `json:"leveledUp"`
	LeveledDown   bool                 `json:"leveledDown"`
	// Delta is the signed change actually applied after clamping at zero.
	Delta int `json:"xpDelta"`
}

// Manager reads and writes progress through a Persistence.
type Manager struct {
	store store.Persistence
}

func New(p store.Persistence) *Manager {
	return &Manager{store: p}
}

// Get returns the current progress. Only a missing or drifted record takes
// a write transaction to initialize it.
func (m *Manager) Get(ctx context.Context) (progression.Snapshot, error) {
	var (
		snap  progression.Snapshot
		found bool
	)
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		snap, found, err = tx.Progress()
		return err
	})
	if err != nil {
		return progression.Snapshot{}, err
	}
	if found && snap.Consistent() {
		return snap, nil
	}
	err = m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		snap, err = Ensure(tx)
		return err
	})
	return snap, err
}

// AddXP awards the XP for d.
func (m *Manager) AddXP(ctx context.Context, d task.Difficulty) (Result, error) {
	return m.apply(ctx, progression.XPDelta(d))
}

// SubtractXP removes the XP for d, never going below zero.
func (m *Manager) SubtractXP(ctx context.Context, d task.Difficulty) (Result, error) {
	return m.apply(ctx, -progression.XPDelta(d))
}

// Reset returns progress to level one with no XP.
func (m *Manager) Reset(ctx context.Context) (Result, error) {
	var res Result
	err := m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		res, err = ResetIn(tx)
		return err
	})
	return res, err
}

func (m *Manager) apply(ctx context.Context, delta int) (Result, error) {
	var res Result
	err := m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		res, err = ApplyIn(tx, delta)
		return err
	})
	return res, err
}

// Watch emits the current progress and then every committed change to it
// until ctx is done.
func (m *Manager) Watch(ctx context.Context) (<-chan progression.Snapshot, error) {
	events, err := m.store.Watch(ctx)
	if err != nil {
		return nil, err
	}
	first, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan progression.Snapshot, 1)
	out <- first
	go func() {
		defer close(out)
		last := first
		for ev := range events {
			if !ev.TouchesProgress() {
				continue
			}
			snap, err := m.Get(ctx)
			if err != nil {
				continue
			}
			if snap == last {
				continue
			}
			last = snap
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Ensure reads progress inside tx, writing the initial record if none exists.
func Ensure(tx store.Tx) (progression.Snapshot, error) {
	snap, ok, err := tx.Progress()
	if err != nil {
		return snap, err
	}
	if ok && snap.Consistent() {
		return snap, nil
	}
	// A missing or drifted record is rebuilt from its total.
	snap = progression.At(snap.TotalXP)
	if err := tx.PutProgress(snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// ApplyIn adds delta (which may be negative) inside tx.
func ApplyIn(tx store.Tx, delta int) (Result, error) {
	prev, err := Ensure(tx)
	if err != nil {
		return Result{}, err
	}
	next := progression.At(prev.TotalXP + delta)
	if next != prev {
		if err := tx.PutProgress(next); err != nil {
			return Result{}, err
		}
	}
	return compare(prev, next), nil
}

// ResetIn resets progress inside tx.
func ResetIn(tx store.Tx) (Result, error) {
	prev, err := Ensure(tx)
	if err != nil {
		return Result{}, err
	}
	next := progression.At(0)
	if err := tx.PutProgress(next); err != nil {
		return Result{}, err
	}
	return compare(prev, next), nil
}

func compare(prev, next progression.Snapshot) Result {
	return Result{
		Progress:      next,
		PreviousLevel: prev.CurrentLevel,
		NewLevel:      next.CurrentLevel,
		LeveledUp:     next.CurrentLevel > prev.CurrentLevel,
		LeveledDown:   next.CurrentLevel < prev.CurrentLevel,
		Delta:         next.TotalXP - prev.TotalXP,
	}
}
