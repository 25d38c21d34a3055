// Package rollover provides the runner logic for a manual rollover.
package rollover

import (
	"context"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
	engine "tableflip.dev/nexday/pkg/rollover"
)

type Rollover struct {
	Force bool

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

func (n *Rollover) Do(ctx context.Context) error {
	res, err := n.Service.RunRolloverNow(ctx, engine.Options{Force: n.Force})
	if err != nil {
		return err
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output.Structured() {
		return printers.Structured(out, n.Output, res)
	}

	f := color.New(color.Faint)
	if res.Skipped {
		_, _ = f.Fprintln(out, "already rolled over this period; use --force to run again")
	} else {
		_, _ = color.New(color.Bold).Fprintf(out, "rolled over %d tasks\n", res.Migrated)
	}
	if res.Deleted > 0 {
		_, _ = f.Fprintf(out, "expired %d old tasks\n", res.Deleted)
	}

	sums, err := n.Service.Summaries(ctx)
	if err != nil {
		return err
	}
	pp := printers.PrettyPrint{Out: out}
	pp.NewLine()
	pp.Summaries(sums)
	return nil
}
