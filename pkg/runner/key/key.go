// Package key provides CLI helpers to display the glyph legend.
package key

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/printers"
)

// Key prints a glyph legend describing task states and difficulties.
type Key struct {
	Out io.Writer
}

// Do renders the legend.
func (k *Key) Do(_ context.Context) error {
	out := k.Out
	if out == nil {
		out = color.Output
	}
	_, _ = fmt.Fprintln(out, "")
	pp := printers.PrettyPrint{Out: out}
	pp.Legend()
	return nil
}
