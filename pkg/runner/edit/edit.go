// Package edit provides the runner logic for changing a task in place.
package edit

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
	"tableflip.dev/nexday/pkg/task"
)

// Edit applies the set fields to a task. Nil fields are left unchanged.
type Edit struct {
	ID          string
	Title       *string
	Description *string
	Difficulty  *task.Difficulty
	At          *time.Time
	ClearAt     bool

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

var ErrNothingToEdit = errors.New("edit: no changes requested")

func (n *Edit) Do(ctx context.Context) error {
	if n.Title == nil && n.Description == nil && n.Difficulty == nil && n.At == nil && !n.ClearAt {
		return ErrNothingToEdit
	}
	t, err := n.Service.Task(ctx, n.ID)
	if err != nil {
		return err
	}
	if n.Title != nil {
		t.Title = strings.TrimSpace(*n.Title)
	}
	if n.Description != nil {
		t.Description = strings.TrimSpace(*n.Description)
	}
	if n.Difficulty != nil {
		t.Difficulty = *n.Difficulty
	}
	if n.ClearAt {
		t.ScheduledTime = nil
	} else if n.At != nil {
		at := *n.At
		t.ScheduledTime = &at
	}

	t, err = n.Service.UpdateTask(ctx, t)
	if err != nil {
		return err
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output.Structured() {
		return printers.Structured(out, n.Output, t)
	}
	pp := printers.PrettyPrint{Out: out}
	pp.Task(t)
	return nil
}
