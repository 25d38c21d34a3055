// Package task defines the task record and the enumerations that classify it.
package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the longest title accepted, in characters.
const MaxTitleLength = 100

// ErrInvalid marks a task record that fails validation.
var ErrInvalid = errors.New("task: invalid")

// Task is one planned item in the three-day window.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	IsCompleted   bool       `json:"isCompleted"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Bucket        Bucket     `json:"dayCategory"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt,omitempty"`
	// OrderKey is the manual display position within the bucket. It is
	// independent of CreatedAt.
	OrderKey int64 `json:"orderKey"`
}

// New returns a task with a fresh id, placed in Tomorrow.
func New(title string, d Difficulty) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(title),
		Difficulty: d,
		Bucket:     Tomorrow,
	}
}

// Validate checks the record is well formed.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalid)
	}
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalid)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalid)
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalid, MaxTitleLength)
	}
	if !t.Difficulty.Valid() {
		return fmt.Errorf("%w: difficulty %q", ErrInvalid, t.Difficulty)
	}
	if !t.Bucket.Valid() {
		return fmt.Errorf("%w: day %q", ErrInvalid, t.Bucket)
	}
	if t.IsCompleted != (t.CompletedAt != nil) {
		return fmt.Errorf("%w: completedAt must be set exactly when completed", ErrInvalid)
	}
	return nil
}

// Complete flips the task to completed and stamps CompletedAt. It reports
// false when the task was already completed.
func (t *Task) Complete(now time.Time) bool {
	if t.IsCompleted {
		return false
	}
	at := now
	t.IsCompleted = true
	t.CompletedAt = &at
	return true
}

// Uncomplete reverses Complete. It reports false when the task was open.
func (t *Task) Uncomplete() bool {
	if !t.IsCompleted {
		return false
	}
	t.IsCompleted = false
	t.CompletedAt = nil
	return true
}

// Timed reports whether the task has a scheduled time.
func (t *Task) Timed() bool {
	return t.ScheduledTime != nil && !t.ScheduledTime.IsZero()
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.ScheduledTime != nil {
		v := *t.ScheduledTime
		cp.ScheduledTime = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}

func (t *Task) String() string {
	mark := " "
	if t.IsCompleted {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %s (%s)", mark, t.Title, t.Difficulty)
}
