// Package reminder sends a notification when an open task reaches its
// scheduled time, and provides the daily planning reminder job.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"tableflip.dev/nexday/pkg/notify"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

// Reminder is one pending task notification.
type Reminder struct {
	TaskID      string    `json:"taskId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}

// Planner watches the task collection and fires reminders on time.
type Planner struct {
	Store    store.Persistence
	Notifier notify.Notifier
	Now      func() time.Time
	Logger   *slog.Logger

	// fired remembers the scheduled time each task was reminded for, so an
	// edit that moves the time re-arms it.
	fired map[string]time.Time
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Pending lists reminders for open TODAY and TOMORROW tasks scheduled after
// since, earliest first. It is empty while task reminders are switched off.
func (p *Planner) Pending(ctx context.Context, since time.Time) ([]Reminder, error) {
	out, _, err := p.scan(ctx, since)
	return out, err
}

// scan returns the pending reminders and the ids of every task still in
// TODAY or TOMORROW, whatever the settings.
func (p *Planner) scan(ctx context.Context, since time.Time) ([]Reminder, map[string]bool, error) {
	var out []Reminder
	live := make(map[string]bool)
	err := p.Store.View(ctx, func(tx store.Tx) error {
		s, err := tx.Settings()
		if err != nil {
			return err
		}
		enabled := s.NotificationsEnabled && s.TaskRemindersEnabled
		for _, b := range []task.Bucket{task.Today, task.Tomorrow} {
			tasks, err := tx.Bucket(b)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				live[t.ID] = true
				if !enabled || t.IsCompleted || !t.Timed() || !t.ScheduledTime.After(since) {
					continue
				}
				out = append(out, Reminder{
					TaskID:      t.ID,
					Title:       t.Title,
					Description: t.Description,
					At:          *t.ScheduledTime,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, live, nil
}

// Fire sends every pending reminder due by now that has not been sent, and
// returns the time of the next one (zero if none). Tasks that left TODAY and
// TOMORROW are forgotten.
func (p *Planner) Fire(ctx context.Context, since time.Time) (time.Time, error) {
	if p.fired == nil {
		p.fired = make(map[string]time.Time)
	}
	pending, live, err := p.scan(ctx, since)
	if err != nil {
		return time.Time{}, err
	}
	for id := range p.fired {
		if !live[id] {
			delete(p.fired, id)
		}
	}

	now := p.now()
	var next time.Time
	for _, r := range pending {
		if sent, ok := p.fired[r.TaskID]; ok && sent.Equal(r.At) {
			continue
		}
		if r.At.After(now) {
			if next.IsZero() {
				next = r.At
			}
			continue
		}
		p.fired[r.TaskID] = r.At
		p.logger().Debug("reminder: due", "task", r.TaskID, "at", r.At)
		if p.Notifier != nil {
			p.Notifier.NotifyTaskReminder(ctx, r.TaskID, r.Title, r.Description)
		}
	}
	return next, nil
}

// Run fires reminders until ctx is done, re-planning after every change to
// the task collection. Tasks whose time passed before Run started are not
// reminded.
func (p *Planner) Run(ctx context.Context) error {
	if p.Store == nil {
		return errors.New("reminder: no persistence configured")
	}
	events, err := p.Store.Watch(ctx)
	if err != nil {
		return err
	}
	since := p.now()
	for {
		next, err := p.Fire(ctx, since)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger().Error("reminder: plan", "err", err)
		}

		wait := time.Hour
		if !next.IsZero() {
			if d := next.Sub(p.now()); d < wait {
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
		case _, ok := <-events:
			timer.Stop()
			if !ok {
				return nil
			}
		case <-timer.C:
		}
	}
}

// DailyJob returns the job behind the daily reminder trigger.
func DailyJob(p store.Persistence, n notify.Notifier) func(context.Context) error {
	return func(ctx context.Context) error {
		var send bool
		err := p.View(ctx, func(tx store.Tx) error {
			s, err := tx.Settings()
			if err != nil {
				return err
			}
			send = s.NotificationsEnabled && s.DailyReminderTime != nil
			return nil
		})
		if err != nil {
			return err
		}
		if send && n != nil {
			n.NotifyDailyReminder(ctx)
		}
		return nil
	}
}
