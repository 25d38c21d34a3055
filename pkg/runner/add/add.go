// Package add provides the runner logic for planning a new task.
package add

import (
	"context"
	"io"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
	"tableflip.dev/nexday/pkg/task"
)

type Add struct {
	Title       string
	Description string
	Difficulty  task.Difficulty
	Bucket      task.Bucket
	At          *time.Time

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

func (n *Add) Do(ctx context.Context) error {
	t, err := n.Service.CreateTask(ctx, &task.Task{
		Title:         n.Title,
		Description:   n.Description,
		Difficulty:    n.Difficulty,
		Bucket:        n.Bucket,
		ScheduledTime: n.At,
	})
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

	all, err := n.Service.PreferredTasks(ctx, t.Bucket)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{ShowID: true, Out: out}
	pp.Title(t.Bucket.String())
	pp.Tasks(all...)
	return nil
}
