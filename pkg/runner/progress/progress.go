// Package progress provides the runner logic for showing and resetting XP.
package progress

import (
	"context"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
)

type Progress struct {
	Reset bool
	// Follow keeps printing until ctx is done.
	Follow bool

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

func (n *Progress) Do(ctx context.Context) error {
	out := n.Out
	if out == nil {
		out = color.Output
	}
	pp := printers.PrettyPrint{Out: out}

	if n.Reset {
		res, err := n.Service.ResetProgress(ctx)
		if err != nil {
			return err
		}
		if n.Output.Structured() {
			return printers.Structured(out, n.Output, res)
		}
		pp.Progress(res.Progress)
		return nil
	}

	if !n.Follow {
		s, err := n.Service.Progress(ctx)
		if err != nil {
			return err
		}
		if n.Output.Structured() {
			return printers.Structured(out, n.Output, s)
		}
		pp.Progress(s)
		return nil
	}

	ch, err := n.Service.WatchProgress(ctx)
	if err != nil {
		return err
	}
	for s := range ch {
		if n.Output.Structured() {
			if err := printers.Structured(out, n.Output, s); err != nil {
				return err
			}
			continue
		}
		pp.Progress(s)
		pp.NewLine()
	}
	return nil
}
