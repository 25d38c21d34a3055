// Package complete provides the runner logic for completing and reopening
// tasks.
package complete

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
)

// Complete marks a task completed, or reopens it when Undo is set.
type Complete struct {
	ID   string
	Undo bool

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

// Do executes the completion operation for the configured task ID.
func (n *Complete) Do(ctx context.Context) error {
	t, err := n.Service.Task(ctx, n.ID)
	if err != nil {
		return err
	}

	var c app.Completion
	if n.Undo {
		c, err = n.Service.UncompleteTask(ctx, t.ID)
	} else {
		c, err = n.Service.CompleteTask(ctx, t.ID)
	}
	if err != nil {
		return err
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output.Structured() {
		return printers.Structured(out, n.Output, c)
	}

	pp := printers.PrettyPrint{ShowID: true, Out: out}
	all, err := n.Service.PreferredTasks(ctx, c.Task.Bucket)
	if err != nil {
		return err
	}
	sum, err := n.Service.BucketSummary(ctx, c.Task.Bucket)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "")
	pp.TitleWithCount(c.Task.Bucket.String(), sum.Completed, sum.Total)
	pp.Tasks(all...)

	switch {
	case !c.Changed:
		_, _ = color.New(color.Faint).Fprintln(out, "no change")
	case c.Progress.LeveledUp:
		_, _ = color.New(color.Bold, color.FgGreen).Fprintf(out, "Level up! You reached level %d.\n", c.Progress.NewLevel)
	default:
		_, _ = color.New(color.Faint).Fprintf(out, "%+d XP\n", c.Progress.Delta)
	}
	pp.Progress(c.Progress.Progress)
	return nil
}
