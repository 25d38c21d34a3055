// Package store persists tasks, progress and settings in SQLite and publishes
// change events after every committed transaction.
package store

import (
	"context"
	"errors"
	"time"

	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/task"
)

var (
	// ErrNotFound is returned when a task id has no row.
	ErrNotFound = errors.New("store: not found")
	// ErrTxFailed wraps failures to begin or commit a transaction.
	ErrTxFailed = errors.New("store: transaction failed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)

// Persistence is the durable state of the planner. Every mutation happens in
// Update; a non-nil error from fn rolls the whole transaction back.
type Persistence interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Watch(ctx context.Context) (<-chan Event, error)
	Close() error
}

// Tx is the set of operations available inside one transaction.
type Tx interface {
	Task(id string) (*task.Task, error)
	// PutTask inserts or replaces the full record.
	PutTask(t *task.Task) error
	// DeleteTask reports whether a row was removed.
	DeleteTask(id string) (bool, error)
	// Bucket lists a bucket ordered by order key, then creation.
	Bucket(b task.Bucket) ([]*task.Task, error)
	Tasks() ([]*task.Task, error)
	BucketIDs(b task.Bucket) ([]string, error)
	// SetBucket moves ids into b, giving them consecutive order keys starting
	// at firstKey in the order listed.
	SetBucket(ids []string, b task.Bucket, firstKey int64) error
	// SetOrderKeys rewrites order keys without moving tasks.
	SetOrderKeys(keys map[string]int64) error
	// DeleteCreatedBefore removes tasks in b created before cutoff.
	DeleteCreatedBefore(b task.Bucket, cutoff time.Time) (int, error)
	MaxOrderKey(b task.Bucket) (int64, error)
	Count(b task.Bucket) (total, completed int, err error)

	// Progress returns ok=false when the record has never been written.
	Progress() (p progression.Snapshot, ok bool, err error)
	PutProgress(p progression.Snapshot) error

	// Settings returns defaults when the record has never been written.
	Settings() (settings.Settings, error)
	PutSettings(s settings.Settings) error

	// RolloverMarker is the time of the last committed migration, zero if
	// none.
	RolloverMarker() (time.Time, error)
	PutRolloverMarker(at time.Time) error
}
