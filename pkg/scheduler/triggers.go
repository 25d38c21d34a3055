package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

// ErrRegister marks a failure to persist or remove a trigger.
var ErrRegister = errors.New("scheduler: cannot register trigger")

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Trigger is the durable description of a daily job.
type Trigger struct {
	Name   string `json:"name"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	// Next is when the trigger fires. A Next in the past fires at once.
	Next time.Time `json:"next"`
	// Attempts counts consecutive failures for the current occurrence.
	Attempts  int       `json:"attempts,omitempty"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// Triggers is a diskv-backed registry of triggers keyed by name.
type Triggers struct {
	d *diskv.Diskv
}

// OpenTriggers opens (creating if needed) the registry in dir.
func OpenTriggers(dir string) (*Triggers, error) {
	if dir == "" {
		return nil, errors.New("scheduler: trigger directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scheduler: ensure %s: %w", dir, err)
	}
	return &Triggers{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
	})}, nil
}

// Put writes t, replacing any trigger with the same name.
func (r *Triggers) Put(t Trigger) error {
	if !namePattern.MatchString(t.Name) {
		return fmt.Errorf("%w: invalid name %q", ErrRegister, t.Name)
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRegister, t.Name, err)
	}
	if err := r.d.Write(t.Name, b); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRegister, t.Name, err)
	}
	return nil
}

// Get returns the trigger named name. ok is false when none is registered.
func (r *Triggers) Get(name string) (Trigger, bool, error) {
	if !r.d.Has(name) {
		return Trigger{}, false, nil
	}
	b, err := r.d.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Trigger{}, false, nil
		}
		return Trigger{}, false, fmt.Errorf("scheduler: read %s: %w", name, err)
	}
	var t Trigger
	if err := json.Unmarshal(b, &t); err != nil {
		return Trigger{}, false, fmt.Errorf("scheduler: decode %s: %w", name, err)
	}
	return t, true, nil
}

// Delete removes the trigger named name. Removing an unknown name succeeds.
func (r *Triggers) Delete(name string) error {
	if !r.d.Has(name) {
		return nil
	}
	if err := r.d.Erase(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: erase %s: %v", ErrRegister, name, err)
	}
	return nil
}

// List returns every trigger ordered by Next. Unreadable entries are skipped.
func (r *Triggers) List(ctx context.Context) ([]Trigger, error) {
	var out []Trigger
	for key := range r.d.Keys(ctx.Done()) {
		t, ok, err := r.Get(key)
		if err != nil || !ok {
			continue
		}
		out = append(out, t)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Next.Equal(out[j].Next) {
			return out[i].Name < out[j].Name
		}
		return out[i].Next.Before(out[j].Next)
	})
	return out, nil
}
