package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tableflip.dev/nexday/pkg/task"
)

// Event is emitted by Persistence.Watch after a change commits. Events that
// pile up while a consumer is busy are merged, so a slow reader sees fewer,
// wider events but never misses a change.
type Event struct {
	// Buckets lists every bucket whose membership, order or task contents
	// changed.
	Buckets []task.Bucket `json:"buckets,omitempty"`
	// Progress is set when the progress record changed.
	Progress bool `json:"progress,omitempty"`
	// Settings is set when the settings record changed.
	Settings bool `json:"settings,omitempty"`
	// Invalidated means another process wrote to the database and every
	// view should be refreshed.
	Invalidated bool `json:"invalidated,omitempty"`
}

// Touches reports whether readers of bucket b need to refresh.
func (e Event) Touches(b task.Bucket) bool {
	if e.Invalidated {
		return true
	}
	for _, got := range e.Buckets {
		if got == b {
			return true
		}
	}
	return false
}

// TouchesProgress reports whether the progress record may have changed.
func (e Event) TouchesProgress() bool {
	return e.Invalidated || e.Progress
}

// TouchesSettings reports whether the settings record may have changed.
func (e Event) TouchesSettings() bool {
	return e.Invalidated || e.Settings
}

// eventSet accumulates changes until they are emitted as one Event.
type eventSet struct {
	buckets     map[task.Bucket]struct{}
	progress    bool
	settings    bool
	invalidated bool
}

func newEvent() *eventSet {
	return &eventSet{buckets: make(map[task.Bucket]struct{})}
}

func (s *eventSet) touch(b task.Bucket) {
	if b == "" {
		return
	}
	s.buckets[b] = struct{}{}
}

func (s *eventSet) merge(ev Event) {
	for _, b := range ev.Buckets {
		s.touch(b)
	}
	s.progress = s.progress || ev.Progress
	s.settings = s.settings || ev.Settings
	s.invalidated = s.invalidated || ev.Invalidated
}

func (s *eventSet) empty() bool {
	return len(s.buckets) == 0 && !s.progress && !s.settings && !s.invalidated
}

func (s *eventSet) event() Event {
	ev := Event{Progress: s.progress, Settings: s.settings, Invalidated: s.invalidated}
	for b := range s.buckets {
		ev.Buckets = append(ev.Buckets, b)
	}
	sort.Slice(ev.Buckets, func(i, j int) bool {
		return ev.Buckets[i].Index() < ev.Buckets[j].Index()
	})
	return ev
}

type subscriber struct {
	mu      sync.Mutex
	pending *eventSet
	wake    chan struct{}
	out     chan Event
	done    chan struct{}
	once    sync.Once
}

func newSubscriber() *subscriber {
	return &subscriber{
		pending: newEvent(),
		wake:    make(chan struct{}, 1),
		out:     make(chan Event),
		done:    make(chan struct{}),
	}
}

func (s *subscriber) push(ev Event) {
	s.mu.Lock()
	s.pending.merge(ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run(ctx context.Context) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		if s.pending.empty() {
			s.mu.Unlock()
			continue
		}
		ev := s.pending.event()
		s.pending = newEvent()
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (p *sqlitePersistence) publish(ev Event) {
	p.mu.Lock()
	subs := make([]*subscriber, 0, len(p.subs))
	for _, s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()
	for _, s := range subs {
		s.push(ev)
	}
}

// ownWriteWindow is how long after a local commit file events are assumed to
// be our own.
const ownWriteWindow = 250 * time.Millisecond

// Watch streams change events until ctx is cancelled or the store is closed.
// Local commits are delivered directly; writes by other processes are picked
// up from the database files and reported as Invalidated.
func (p *sqlitePersistence) Watch(ctx context.Context) (<-chan Event, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	id := p.nextID
	p.nextID++
	sub := newSubscriber()
	p.subs[id] = sub
	p.mu.Unlock()

	unsubscribe := func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
		sub.stop()
	}

	watcher, err := p.watchFiles()
	if err != nil {
		slog.Warn("store: external change watch unavailable", "path", p.path, "err", err)
	}

	go sub.run(ctx)
	go func() {
		defer unsubscribe()
		if watcher == nil {
			select {
			case <-ctx.Done():
			case <-sub.done:
			}
			return
		}
		defer func() {
			if err := watcher.Close(); err != nil {
				slog.Debug("store: watcher close", "err", err)
			}
		}()

		throttle := newEventThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		prefix := filepath.Base(p.path)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Debug("store: watcher error", "err", err)
				throttle.Enqueue(Event{Invalidated: true}, sub.push)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Base(evt.Name), prefix) {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if p.recentlyCommitted() {
					continue
				}
				throttle.Enqueue(Event{Invalidated: true}, sub.push)
			}
		}
	}()

	return sub.out, nil
}

func (p *sqlitePersistence) watchFiles() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("store: watch %s: %w", dir, err)
	}
	return watcher, nil
}

func (p *sqlitePersistence) recentlyCommitted() bool {
	last := p.lastCommit.Load()
	return last != 0 && time.Since(time.Unix(0, last)) < ownWriteWindow
}

// eventThrottle coalesces bursts of file activity (a single commit touches
// the database, its WAL and shared-memory files) into one event.
type eventThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending *eventSet
	delay   time.Duration
}

func newEventThrottle(delay time.Duration) *eventThrottle {
	return &eventThrottle{
		delay:   delay,
		pending: newEvent(),
	}
}

func (t *eventThrottle) Enqueue(ev Event, send func(Event)) {
	t.mu.Lock()
	t.pending.merge(ev)
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
	t.mu.Unlock()
}

func (t *eventThrottle) flush(send func(Event)) {
	t.mu.Lock()
	pending := t.pending
	t.pending = newEvent()
	t.timer = nil
	t.mu.Unlock()

	if !pending.empty() {
		send(pending.event())
	}
}

func (t *eventThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
