// Package report provides the runner logic for the completed-tasks report.
package report

import (
	"context"
	"io"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
)

type Report struct {
	// Window is how far back from now to look.
	Window time.Duration
	ShowID bool

	Service *app.Service
	Output  printers.Format
	Out     io.Writer
}

func (n *Report) Do(ctx context.Context) error {
	until := time.Now()
	if n.Service.Now != nil {
		until = n.Service.Now()
	}
	res, err := n.Service.Report(ctx, until.Add(-n.Window), until)
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
	pp := printers.PrettyPrint{ShowID: n.ShowID, Out: out}
	pp.Report(res)
	return nil
}
