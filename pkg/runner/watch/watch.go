// Package watch provides the runner logic for a live view of the window.
package watch

import (
	"context"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/runner/list"
)

const clearScreen = "\x1b[H\x1b[2J"

// Watch redraws List whenever the store changes, including changes made by
// another process.
type Watch struct {
	List list.List
	// Clear wipes the terminal before each redraw.
	Clear bool
}

func (n *Watch) Do(ctx context.Context) error {
	ch, err := n.List.Service.Watch(ctx)
	if err != nil {
		return err
	}
	out := n.List.Out
	if out == nil {
		out = color.Output
		n.List.Out = out
	}
	if err := n.draw(ctx, out); err != nil {
		return err
	}
	for range ch {
		if err := n.draw(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (n *Watch) draw(ctx context.Context, out io.Writer) error {
	if n.Clear {
		_, _ = io.WriteString(out, clearScreen)
	}
	return n.List.Do(ctx)
}
