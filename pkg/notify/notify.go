// Package notify delivers level-up and reminder notifications. Delivery is
// fire-and-forget: nothing the core does depends on it succeeding.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// Notifier receives the notifications the planner emits.
type Notifier interface {
	NotifyLevelUp(ctx context.Context, level, totalXP int)
	NotifyTaskReminder(ctx context.Context, taskID, title, description string)
	NotifyDailyReminder(ctx context.Context)
}

// Nop discards everything.
type Nop struct{}

func (Nop) NotifyLevelUp(context.Context, int, int) {}
func (Nop) NotifyTaskReminder(context.Context, string, string, string) {}
func (Nop) NotifyDailyReminder(context.Context) {}

// Log writes notifications as structured log records.
type Log struct {
	Logger *slog.Logger
}

func (l Log) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l Log) NotifyLevelUp(ctx context.Context, level, totalXP int) {
	l.logger().InfoContext(ctx, "level up", "level", level, "totalXP", totalXP)
}

func (l Log) NotifyTaskReminder(ctx context.Context, taskID, title, description string) {
	l.logger().InfoContext(ctx, "task reminder", "id", taskID, "title", title, "description", description)
}

func (l Log) NotifyDailyReminder(ctx context.Context) {
	l.logger().InfoContext(ctx, "daily reminder")
}

// Terminal prints notifications to a terminal in color.
type Terminal struct {
	mu  sync.Mutex
	Out io.Writer
}

func NewTerminal() *Terminal {
	return &Terminal{Out: color.Output}
}

func (t *Terminal) printf(c *color.Color, format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.Out
	if out == nil {
		out = color.Output
	}
	_, _ = c.Fprintf(out, format, args...)
}

func (t *Terminal) NotifyLevelUp(_ context.Context, level, totalXP int) {
	t.printf(color.New(color.FgYellow, color.Bold), "★ Level %d reached! (%d XP total)\n", level, totalXP)
}

func (t *Terminal) NotifyTaskReminder(_ context.Context, _, title, description string) {
	msg := "⏰ " + title
	if description != "" {
		msg = fmt.Sprintf("%s: %s", msg, description)
	}
	t.printf(color.New(color.FgCyan), "%s\n", msg)
}

func (t *Terminal) NotifyDailyReminder(context.Context) {
	t.printf(color.New(color.FgGreen), "Time to plan tomorrow's tasks.\n")
}

// Multi fans out to every notifier in order.
type Multi []Notifier

func (m Multi) NotifyLevelUp(ctx context.Context, level, totalXP int) {
	for _, n := range m {
		n.NotifyLevelUp(ctx, level, totalXP)
	}
}

func (m Multi) NotifyTaskReminder(ctx context.Context, taskID, title, description string) {
	for _, n := range m {
		n.NotifyTaskReminder(ctx, taskID, title, description)
	}
}

func (m Multi) NotifyDailyReminder(ctx context.Context) {
	for _, n := range m {
		n.NotifyDailyReminder(ctx)
	}
}
