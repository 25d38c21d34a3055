// Package move provides the runner logic for moving tasks between days and
// setting their manual order.
package move

import (
	"context"
	"errors"
	"io"
	"slices"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/printers"
	"tableflip.dev/nexday/pkg/task"
)

// Move sends a task to To, or one day in Direction when To is empty.
type Move struct {
	ID        string
	To        task.Bucket
	Direction task.Direction

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

// ErrAtEdge is returned when a task cannot move further in the requested
// direction.
var ErrAtEdge = errors.New("move: task is already at the edge of the window")

func (n *Move) Do(ctx context.Context) error {
	t, err := n.Service.Task(ctx, n.ID)
	if err != nil {
		return err
	}
	from := t.Bucket

	switch {
	case n.To != "":
		t, err = n.Service.MoveTaskTo(ctx, t.ID, n.To)
	case n.Direction != "":
		var moved bool
		t, moved, err = n.Service.MoveTask(ctx, t.ID, n.Direction)
		if err == nil && !moved {
			err = ErrAtEdge
		}
	default:
		err = errors.New("move: a destination day or direction is required")
	}
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
	return printBuckets(ctx, n.Service, out, from, t.Bucket)
}

// Reorder sets the manual order of a day from a full list of ids or unique
// prefixes.
type Reorder struct {
	Bucket task.Bucket
	IDs    []string

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

func (n *Reorder) Do(ctx context.Context) error {
	ids := make([]string, 0, len(n.IDs))
	for _, id := range n.IDs {
		t, err := n.Service.Task(ctx, id)
		if err != nil {
			return err
		}
		ids = append(ids, t.ID)
	}
	if err := n.Service.ReorderBucket(ctx, n.Bucket, ids); err != nil {
		return err
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output.Structured() {
		tasks, err := n.Service.Tasks(ctx, n.Bucket, ordering.Manual, false)
		if err != nil {
			return err
		}
		return printers.Structured(out, n.Output, tasks)
	}
	return printBuckets(ctx, n.Service, out, n.Bucket)
}

func printBuckets(ctx context.Context, svc *app.Service, out io.Writer, buckets ...task.Bucket) error {
	pp := printers.PrettyPrint{ShowID: true, Out: out}
	for _, b := range task.Buckets() {
		if !slices.Contains(buckets, b) {
			continue
		}
		all, err := svc.PreferredTasks(ctx, b)
		if err != nil {
			return err
		}
		pp.Title(b.String())
		pp.Tasks(all...)
	}
	return nil
}
