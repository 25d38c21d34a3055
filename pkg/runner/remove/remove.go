// Package remove provides the runner logic for deleting tasks.
package remove

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
)

type Remove struct {
	IDs []string

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

func (n *Remove) Do(ctx context.Context) error {
	removed := make([]string, 0, len(n.IDs))
	for _, id := range n.IDs {
		t, err := n.Service.Task(ctx, id)
		if err != nil {
			return err
		}
		if err := n.Service.DeleteTask(ctx, t.ID); err != nil {
			return err
		}
		removed = append(removed, t.ID)
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output.Structured() {
		return printers.Structured(out, n.Output, map[string][]string{"deleted": removed})
	}
	f := color.New(color.Faint)
	for _, id := range removed {
		_, _ = f.Fprintf(out, "deleted %s\n", id)
	}
	if len(removed) == 0 {
		_, _ = fmt.Fprintln(out, "nothing to delete")
	}
	return nil
}
