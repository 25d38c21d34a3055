// Package list provides the runner logic for showing the three-day window.
package list

import (
	"context"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/printers"
	"tableflip.dev/nexday/pkg/task"
)

type List struct {
	// Buckets to show, left to right. Empty means all three.
	Buckets []task.Bucket
	// Sort overrides the stored preference when set.
	Sort    ordering.Mode
	Reverse bool
	ShowID  bool

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

// Day is one bucket of the listing.
type Day struct {
	Bucket    task.Bucket  `json:"dayCategory" yaml:"dayCategory"`
	Completed int          `json:"completed" yaml:"completed"`
	Tasks     []*task.Task `json:"tasks" yaml:"tasks"`
}

func (n *List) Do(ctx context.Context) error {
	days, err := n.Load(ctx)
	if err != nil {
		return err
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output.Structured() {
		return printers.Structured(out, n.Output, days)
	}

	pp := printers.PrettyPrint{ShowID: n.ShowID, Out: out}
	pp.NewLine()
	for _, d := range days {
		pp.TitleWithCount(d.Bucket.String(), d.Completed, len(d.Tasks))
		pp.Tasks(d.Tasks...)
	}
	return nil
}

// Load reads the configured buckets.
func (n *List) Load(ctx context.Context) ([]Day, error) {
	buckets := n.Buckets
	if len(buckets) == 0 {
		buckets = task.Buckets()
	}
	days := make([]Day, 0, len(buckets))
	for _, b := range buckets {
		var (
			tasks []*task.Task
			err   error
		)
		if n.Sort == "" {
			tasks, err = n.Service.PreferredTasks(ctx, b)
		} else {
			tasks, err = n.Service.Tasks(ctx, b, n.Sort, n.Reverse)
		}
		if err != nil {
			return nil, err
		}
		done := 0
		for _, t := range tasks {
			if t.IsCompleted {
				done++
			}
		}
		days = append(days, Day{Bucket: b, Completed: done, Tasks: tasks})
	}
	return days, nil
}
