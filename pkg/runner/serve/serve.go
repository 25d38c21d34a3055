// Package serve provides the long-running process that owns the daily
// triggers and task reminders.
package serve

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/notify"
	"tableflip.dev/nexday/pkg/reminder"
	"tableflip.dev/nexday/pkg/rollover"
	"tableflip.dev/nexday/pkg/runner/mcp"
	"tableflip.dev/nexday/pkg/scheduler"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/timeutil"
)

type Serve struct {
	Service   *app.Service
	Scheduler *scheduler.Scheduler
	Notifier  notify.Notifier
	// MCP, when set, is served alongside the scheduler.
	MCP    *mcp.Runner
	Logger *slog.Logger
}

func (n *Serve) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// Do runs until ctx is done or a component fails.
func (n *Serve) Do(ctx context.Context) error {
	if n.Service == nil || n.Scheduler == nil {
		return errors.New("serve: service and scheduler are required")
	}
	notifier := n.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	n.Scheduler.Handle(scheduler.RolloverTrigger, func(ctx context.Context) error {
		_, err := n.Service.RunRolloverNow(ctx, rollover.Options{})
		return err
	})
	n.Scheduler.Handle(scheduler.DailyReminderTrigger, reminder.DailyJob(n.Service.Persistence, notifier))

	// Subscribe before the first read so no settings change is missed.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := n.Service.Watch(ctx)
	if err != nil {
		return err
	}
	set, err := n.Service.Settings(ctx)
	if err != nil {
		return err
	}
	if err := n.Scheduler.Configure(set); err != nil {
		return err
	}

	planner := &reminder.Planner{
		Store:    n.Service.Persistence,
		Notifier: notifier,
		Now:      n.Service.Now,
		Logger:   n.logger(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Scheduler.Run(ctx) })
	g.Go(func() error { return planner.Run(ctx) })
	g.Go(func() error { return n.follow(ctx, events) })
	if n.MCP != nil {
		r := *n.MCP
		r.App = n.Service
		if r.Logger == nil {
			r.Logger = n.logger()
		}
		g.Go(func() error { return r.Do(ctx) })
	}
	n.logger().Info("serve: started", "rolloverEnabled", set.RolloverEnabled,
		"at", timeutil.FormatClock(set.RolloverHour, set.RolloverMinute))
	return g.Wait()
}

// follow reconfigures the triggers when settings change, including changes
// written by another process.
func (n *Serve) follow(ctx context.Context, events <-chan store.Event) error {
	for {
		var ev store.Event
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			ev = e
		}
		if !ev.TouchesSettings() {
			continue
		}
		set, err := n.Service.Settings(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			n.logger().Error("serve: reload settings", "err", err)
			continue
		}
		if err := n.Scheduler.Configure(set); err != nil {
			n.logger().Error("serve: reschedule", "err", err)
		}
	}
}
