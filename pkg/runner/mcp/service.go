// Package mcp provides the Model Context Protocol server integration for nexday.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/glyph"
	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/rollover"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/task"
)

// Service adapts the planner operations to transport-friendly shapes.
type Service struct {
	App *app.Service
}

// ErrNoService is returned when the service has no planner behind it.
var ErrNoService = errors.New("mcp: planner service is not configured")

// CreateTaskOptions captures the parameters used to create a new task.
type CreateTaskOptions struct {
	Title       string
	Description string
	Difficulty  task.Difficulty
	Bucket      task.Bucket
	Scheduled   *time.Time
}

// UpdateTaskOptions lists the fields to change. Nil fields are left alone.
type UpdateTaskOptions struct {
	ID          string
	Title       *string
	Description *string
	Difficulty  *task.Difficulty
	Scheduled   *time.Time
	// ClearScheduled removes the scheduled time.
	ClearScheduled bool
}

// TaskDTO is a transport-friendly projection of a task.
type TaskDTO struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	Difficulty        string `json:"difficulty"`
	DifficultyDisplay string `json:"difficultyDisplay"`
	XP                int    `json:"xp"`
	DayCategory       string `json:"dayCategory"`
	Symbol            string `json:"symbol"`
	IsCompleted       bool   `json:"isCompleted"`
	CreatedISO        string `json:"createdAt"`
	ScheduledISO      string `json:"scheduledTime,omitempty"`
	CompletedISO      string `json:"completedAt,omitempty"`
	OrderKey          int64  `json:"orderKey"`
}

// DaySummary describes a bucket and its counts.
type DaySummary struct {
	DayCategory string `json:"dayCategory"`
	Name        string `json:"name"`
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	Open        int    `json:"open"`
}

// CompletionDTO reports a completion change and the progress after it.
type CompletionDTO struct {
	Task      TaskDTO              `json:"task"`
	Changed   bool                 `json:"changed"`
	XPDelta   int                  `json:"xpDelta"`
	LeveledUp bool                 `json:"leveledUp"`
	Progress  progression.Snapshot `json:"progress"`
}

func NewService(a *app.Service) *Service {
	return &Service{App: a}
}

func (s *Service) app() (*app.Service, error) {
	if s == nil || s.App == nil {
		return nil, ErrNoService
	}
	return s.App, nil
}

// Days returns a summary for every bucket, left to right.
func (s *Service) Days(ctx context.Context) ([]DaySummary, error) {
	a, err := s.app()
	if err != nil {
		return nil, err
	}
	sums, err := a.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DaySummary, 0, len(sums))
	for _, sum := range sums {
		out = append(out, DaySummary{
			DayCategory: string(sum.Bucket),
			Name:        sum.Bucket.String(),
			Total:       sum.Total,
			Completed:   sum.Completed,
			Open:        sum.Total - sum.Completed,
		})
	}
	return out, nil
}

// ListTasks returns a bucket in the requested order. An empty sort uses the
// stored preference.
func (s *Service) ListTasks(ctx context.Context, b task.Bucket, sort string, reverse bool) ([]TaskDTO, error) {
	a, err := s.app()
	if err != nil {
		return nil, err
	}
	var tasks []*task.Task
	if strings.TrimSpace(sort) == "" {
		tasks, err = a.PreferredTasks(ctx, b)
	} else {
		var mode ordering.Mode
		mode, err = ordering.ParseMode(sort)
		if err != nil {
			return nil, err
		}
		tasks, err = a.Tasks(ctx, b, mode, reverse)
	}
	if err != nil {
		return nil, err
	}
	return toDTOs(tasks), nil
}

// TaskByID resolves a full id or unique prefix.
func (s *Service) TaskByID(ctx context.Context, id string) (*TaskDTO, error) {
	a, err := s.app()
	if err != nil {
		return nil, err
	}
	t, err := a.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(t)
	return &dto, nil
}

// CreateTask persists a new task.
func (s *Service) CreateTask(ctx context.Context, opts CreateTaskOptions) (*TaskDTO, error) {
	a, err := s.app()
	if err != nil {
		return nil, err
	}
	if opts.Difficulty == "" {
		opts.Difficulty = task.Medium
	}
	out, err := a.CreateTask(ctx, &task.Task{
		Title:         opts.Title,
		Description:   strings.TrimSpace(opts.Description),
		Difficulty:    opts.Difficulty,
		Bucket:        opts.Bucket,
		ScheduledTime: opts.Scheduled,
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(out)
	return &dto, nil
}

// UpdateTask edits the named fields of a task.
func (s *Service) UpdateTask(ctx context.Context, opts UpdateTaskOptions) (*TaskDTO, error) {
	a, err := s.app()
	if err != nil {
		return nil, err
	}
	t, err := a.Task(ctx, opts.ID)
	if err != nil {
		return nil, err
	}
	if opts.Title != nil {
		t.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Description != nil {
		t.Description = strings.TrimSpace(*opts.Description)
	}
	if opts.Difficulty != nil {
		t.Difficulty = *opts.Difficulty
	}
	switch {
	case opts.ClearScheduled:
		t.ScheduledTime = nil
	case opts.Scheduled != nil:
		t.ScheduledTime = opts.Scheduled
	}
	out, err := a.UpdateTask(ctx, t)
	if err != nil {
		return nil, err
	}
	dto := toDTO(out)
	return &dto, nil
}

// DeleteTask removes a task by full id or unique prefix.
func (s *Service) DeleteTask(ctx context.Context, id string) (string, error) {
	a, err := s.app()
	if err != nil {
		return "", err
	}
	t, err := a.Task(ctx, id)
	if err != nil {
		return "", err
	}
	return t.ID, a.DeleteTask(ctx, t.ID)
}

// SetCompleted completes or reopens a task.
func (s *Service) SetCompleted(ctx context.Context, id string, done bool) (*CompletionDTO, error) {
	a, err := s.app()
	if err != nil {
		return nil, err
	}
	t, err := a.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	var c app.Completion
	if done {
		c, err = a.CompleteTask(ctx, t.ID)
	} else {
		c, err = a.UncompleteTask(ctx, t.ID)
	}
	if err != nil {
		return nil, err
	}
	return &CompletionDTO{
		Task:      toDTO(c.Task),
		Changed:   c.Changed,
		XPDelta:   c.Progress.Delta,
		LeveledUp: c.Progress.LeveledUp,
		Progress:  c.Progress.Progress,
	}, nil
}

// MoveTask moves a task to an explicit day or one step in a direction. Exactly
// one of day and direction must be set.
func (s *Service) MoveTask(ctx context.Context, id, day, direction string) (*TaskDTO, bool, error) {
	a, err := s.app()
	if err != nil {
		return nil, false, err
	}
	if (day == "") == (direction == "") {
		return nil, false, errors.New("exactly one of day or direction is required")
	}
	t, err := a.Task(ctx, id)
	if err != nil {
		return nil, false, err
	}
	var (
		out   *task.Task
		moved = true
	)
	if day != "" {
		b, perr := task.ParseBucket(day)
		if perr != nil {
			return nil, false, perr
		}
		out, err = a.MoveTaskTo(ctx, t.ID, b)
	} else {
		dir, perr := task.ParseDirection(direction)
		if perr != nil {
			return nil, false, perr
		}
		out, moved, err = a.MoveTask(ctx, t.ID, dir)
	}
	if err != nil {
		return nil, false, err
	}
	dto := toDTO(out)
	return &dto, moved, nil
}

// Reorder stores ids as the manual order of a day.
func (s *Service) Reorder(ctx context.Context, b task.Bucket, ids []string) ([]TaskDTO, error) {
	a, err := s.app()
	if err != nil {
		return nil, err
	}
	if err := a.ReorderBucket(ctx, b, ids); err != nil {
		return nil, err
	}
	tasks, err := a.Tasks(ctx, b, ordering.Manual, false)
	if err != nil {
		return nil, err
	}
	return toDTOs(tasks), nil
}

func (s *Service) Progress(ctx context.Context) (progression.Snapshot, error) {
	a, err := s.app()
	if err != nil {
		return progression.Snapshot{}, err
	}
	return a.Progress(ctx)
}

func (s *Service) Settings(ctx context.Context) (settings.Settings, error) {
	a, err := s.app()
	if err != nil {
		return settings.Settings{}, err
	}
	return a.Settings(ctx)
}

// UpdateSettings applies fn to the stored preferences.
func (s *Service) UpdateSettings(ctx context.Context, fn func(*settings.Settings) error) (settings.Settings, error) {
	a, err := s.app()
	if err != nil {
		return settings.Settings{}, err
	}
	return a.UpdateSettings(ctx, fn)
}

// Rollover runs a rollover now.
func (s *Service) Rollover(ctx context.Context, force bool) (rollover.Result, error) {
	a, err := s.app()
	if err != nil {
		return rollover.Result{}, err
	}
	return a.RunRolloverNow(ctx, rollover.Options{Force: force})
}

// Report lists tasks completed within the window ending now.
func (s *Service) Report(ctx context.Context, window time.Duration) (app.ReportResult, error) {
	a, err := s.app()
	if err != nil {
		return app.ReportResult{}, err
	}
	if window <= 0 {
		return app.ReportResult{}, fmt.Errorf("window must be positive, got %s", window)
	}
	until := time.Now()
	if a.Now != nil {
		until = a.Now()
	}
	return a.Report(ctx, until.Add(-window), until)
}

func toDTOs(tasks []*task.Task) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toDTO(t))
	}
	return out
}

func toDTO(t *task.Task) TaskDTO {
	dto := TaskDTO{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		Difficulty:        string(t.Difficulty),
		DifficultyDisplay: t.Difficulty.String(),
		XP:                t.Difficulty.XP(),
		DayCategory:       string(t.Bucket),
		Symbol:            glyph.Status(t),
		IsCompleted:       t.IsCompleted,
		CreatedISO:        task.FormatTime(t.CreatedAt),
		OrderKey:          t.OrderKey,
	}
	if t.Timed() {
		dto.ScheduledISO = task.FormatTime(*t.ScheduledTime)
	}
	if t.CompletedAt != nil {
		dto.CompletedISO = task.FormatTime(*t.CompletedAt)
	}
	return dto
}
