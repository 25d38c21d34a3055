// Package scheduler fires named jobs once a day at a configured time. Triggers
// are persisted, so a trigger missed while the process was down fires as soon
// as the scheduler starts again.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/timeutil"
)

// Trigger names managed by Configure.
const (
	RolloverTrigger      = "rollover"
	DailyReminderTrigger = "daily-reminder"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Minute
)

// Job is the work behind a trigger.
type Job func(ctx context.Context) error

// Scheduler runs registered jobs at their trigger times.
type Scheduler struct {
	Triggers *Triggers
	// Now defaults to time.Now; its location decides the wall clock that
	// trigger times refer to.
	Now func() time.Time
	// MaxAttempts bounds tries per occurrence, DefaultMaxAttempts when zero.
	MaxAttempts int
	// Backoff is the delay before the n-th retry, multiplied by n.
	Backoff time.Duration
	Logger  *slog.Logger

	mu   sync.Mutex
	jobs map[string]Job
	wake chan struct{}
}

func New(t *Triggers) *Scheduler {
	return &Scheduler{Triggers: t}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Scheduler) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (s *Scheduler) backoff() time.Duration {
	if s.Backoff > 0 {
		return s.Backoff
	}
	return DefaultBackoff
}

func (s *Scheduler) signal() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake == nil {
		s.wake = make(chan struct{}, 1)
	}
	return s.wake
}

func (s *Scheduler) poke() {
	select {
	case s.signal() <- struct{}{}:
	default:
	}
}

// Handle binds job to the trigger named name.
func (s *Scheduler) Handle(name string, job Job) {
	s.mu.Lock()
	if s.jobs == nil {
		s.jobs = make(map[string]Job)
	}
	s.jobs[name] = job
	s.mu.Unlock()
}

func (s *Scheduler) job(name string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[name]
}

// Schedule registers name to fire daily at hour:minute. Re-registering the
// same time keeps the pending occurrence, including one that is overdue.
func (s *Scheduler) Schedule(name string, hour, minute int) (Trigger, error) {
	if s.Triggers == nil {
		return Trigger{}, fmt.Errorf("%w: no trigger store", ErrRegister)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Trigger{}, fmt.Errorf("%w: %s: invalid time %02d:%02d", ErrRegister, name, hour, minute)
	}
	cur, ok, err := s.Triggers.Get(name)
	if err != nil {
		return Trigger{}, err
	}
	if ok && cur.Hour == hour && cur.Minute == minute && !cur.Next.IsZero() {
		return cur, nil
	}
	t := Trigger{
		Name:   name,
		Hour:   hour,
		Minute: minute,
		Next:   timeutil.NextDaily(s.now(), hour, minute),
	}
	if ok {
		t.LastRun = cur.LastRun
	}
	if err := s.Triggers.Put(t); err != nil {
		return Trigger{}, err
	}
	s.logger().Info("scheduler: registered", "trigger", name, "next", t.Next)
	s.poke()
	return t, nil
}

// Cancel removes the trigger named name so it no longer fires.
func (s *Scheduler) Cancel(name string) error {
	if s.Triggers == nil {
		return fmt.Errorf("%w: no trigger store", ErrRegister)
	}
	if err := s.Triggers.Delete(name); err != nil {
		return err
	}
	s.logger().Debug("scheduler: cancelled", "trigger", name)
	s.poke()
	return nil
}

// Configure aligns the rollover and daily reminder triggers with set.
func (s *Scheduler) Configure(set settings.Settings) error {
	set = set.Normalize()
	var errs []error
	if set.RolloverEnabled {
		_, err := s.Schedule(RolloverTrigger, set.RolloverHour, set.RolloverMinute)
		errs = append(errs, err)
	} else {
		errs = append(errs, s.Cancel(RolloverTrigger))
	}
	if h, m, ok := set.ReminderClock(); ok && set.NotificationsEnabled {
		_, err := s.Schedule(DailyReminderTrigger, h, m)
		errs = append(errs, err)
	} else {
		errs = append(errs, s.Cancel(DailyReminderTrigger))
	}
	return errors.Join(errs...)
}

// RunDue fires every trigger whose time has come and returns how many ran.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	triggers, err := s.Triggers.List(ctx)
	if err != nil {
		return 0, err
	}
	fired := 0
	for _, t := range triggers {
		if t.Next.After(s.now()) {
			break
		}
		s.fire(ctx, t)
		fired++
	}
	return fired, nil
}

func (s *Scheduler) fire(ctx context.Context, t Trigger) {
	log := s.logger().With("trigger", t.Name)
	job := s.job(t.Name)

	var err error
	if job == nil {
		log.Warn("scheduler: no job bound, skipping occurrence")
	} else {
		err = runJob(ctx, job)
	}
	now := s.now()

	// The trigger may have been cancelled or moved while the job ran.
	cur, ok, getErr := s.Triggers.Get(t.Name)
	if getErr != nil {
		log.Error("scheduler: reload", "err", getErr)
		return
	}
	if !ok || cur.Hour != t.Hour || cur.Minute != t.Minute {
		return
	}

	switch {
	case err == nil:
		cur.Attempts = 0
		cur.LastError = ""
		cur.LastRun = now
		cur.Next = timeutil.NextDaily(now, cur.Hour, cur.Minute)
		if job != nil {
			log.Info("scheduler: ran", "next", cur.Next)
		}
	case cur.Attempts+1 < s.maxAttempts():
		cur.Attempts++
		cur.LastError = err.Error()
		cur.Next = now.Add(time.Duration(cur.Attempts) * s.backoff())
		log.Warn("scheduler: job failed, will retry", "attempt", cur.Attempts, "next", cur.Next, "err", err)
	default:
		cur.Attempts = 0
		cur.LastError = err.Error()
		cur.Next = timeutil.NextDaily(now, cur.Hour, cur.Minute)
		log.Error("scheduler: job failed, giving up until next day", "next", cur.Next, "err", err)
	}
	if err := s.Triggers.Put(cur); err != nil {
		log.Error("scheduler: persist", "err", err)
	}
}

// runJob keeps a panicking job from taking the loop down.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: job panic: %v", r)
		}
	}()
	return job(ctx)
}

// Run fires triggers as they come due until ctx is done. Overdue triggers fire
// immediately on start.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Triggers == nil {
		return fmt.Errorf("%w: no trigger store", ErrRegister)
	}
	wake := s.signal()
	for {
		if _, err := s.RunDue(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger().Error("scheduler: list triggers", "err", err)
		}

		wait := time.Hour
		if triggers, err := s.Triggers.List(ctx); err == nil && len(triggers) > 0 {
			if d := triggers[0].Next.Sub(s.now()); d < wait {
				wait = d
			}
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
