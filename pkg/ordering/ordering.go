// Package ordering defines how tasks are arranged inside a bucket.
package ordering

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tableflip.dev/nexday/pkg/task"
)

// Mode selects the sort key used within a bucket.
type Mode string

const (
	// Manual orders by the user-controlled order key.
	Manual Mode = "MANUAL"
	// Difficulty orders hardest first.
	Difficulty Mode = "DIFFICULTY"
	// Time orders by scheduled time, untimed tasks last.
	Time Mode = "TIME"
)

// Modes lists every supported mode.
func Modes() []Mode {
	return []Mode{Manual, Difficulty, Time}
}

func (m Mode) Valid() bool {
	_, ok := strategies[m]
	return ok
}

func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(raw)))
	if m == "" {
		return Manual, nil
	}
	if !m.Valid() {
		return Manual, fmt.Errorf("ordering: unknown sort mode %q", raw)
	}
	return m, nil
}

// Less reports whether a sorts before b.
type Less func(a, b *task.Task) bool

var strategies = map[Mode]func(reverse bool) Less{
	Manual:     manual,
	Difficulty: difficulty,
	Time:       scheduled,
}

// Comparator builds the total order for a mode. Unknown modes fall back to
// Manual.
func Comparator(mode Mode, reverse bool) Less {
	build, ok := strategies[mode]
	if !ok {
		build = manual
	}
	return build(reverse)
}

// Sort orders tasks in place; the result depends only on the task fields,
// never on the input order.
func Sort(tasks []*task.Task, mode Mode, reverse bool) {
	less := Comparator(mode, reverse)
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j])
	})
}

// byCreation is the ascending creation order used to break ties.
func byCreation(a, b *task.Task) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func manual(reverse bool) Less {
	asc := func(a, b *task.Task) bool {
		if a.OrderKey != b.OrderKey {
			return a.OrderKey < b.OrderKey
		}
		return byCreation(a, b)
	}
	if reverse {
		return func(a, b *task.Task) bool { return asc(b, a) }
	}
	return asc
}

func difficulty(reverse bool) Less {
	return func(a, b *task.Task) bool {
		ra, rb := a.Difficulty.Rank(), b.Difficulty.Rank()
		if ra != rb {
			if reverse {
				return ra < rb
			}
			return ra > rb
		}
		return byCreation(a, b)
	}
}

func scheduled(reverse bool) Less {
	return func(a, b *task.Task) bool {
		at, bt := a.Timed(), b.Timed()
		switch {
		case at && !bt:
			return true
		case !at && bt:
			return false
		case !at && !bt:
			return byCreation(a, b)
		}
		if !a.ScheduledTime.Equal(*b.ScheduledTime) {
			if reverse {
				return a.ScheduledTime.After(*b.ScheduledTime)
			}
			return a.ScheduledTime.Before(*b.ScheduledTime)
		}
		return byCreation(a, b)
	}
}

// ErrNotPermutation is returned when a reorder request does not list every
// task of the bucket exactly once.
var ErrNotPermutation = errors.New("ordering: ids are not a permutation of the bucket")

// Keys assigns dense order keys 1..n to ids in sequence after checking that
// ids is a permutation of current.
func Keys(current []string, ids []string) (map[string]int64, error) {
	if len(current) != len(ids) {
		return nil, fmt.Errorf("%w: expected %d ids, got %d", ErrNotPermutation, len(current), len(ids))
	}
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	keys := make(map[string]int64, len(ids))
	for i, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("%w: unknown id %q", ErrNotPermutation, id)
		}
		if _, dup := keys[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrNotPermutation, id)
		}
		keys[id] = int64(i + 1)
	}
	return keys, nil
}
