// Package settings provides the runner logic for showing and changing
// preferences.
package settings

import (
	"context"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/printers"
	"tableflip.dev/nexday/pkg/scheduler"
	prefs "tableflip.dev/nexday/pkg/settings"
)

// Settings applies Changes in order, then prints the stored preferences.
type Settings struct {
	Changes []func(*prefs.Settings) error

	Service *app.Service
	// Triggers, when set, is listed after the preferences.
	Triggers *scheduler.Triggers
	Output   printers.Format
	Out      io.Writer
}

type view struct {
	Settings prefs.Settings      `json:"settings" yaml:"settings"`
	Triggers []scheduler.Trigger `json:"triggers,omitempty" yaml:"triggers,omitempty"`
}

func (n *Settings) Do(ctx context.Context) error {
	var (
		s   prefs.Settings
		err error
	)
	if len(n.Changes) > 0 {
		s, err = n.Service.UpdateSettings(ctx, func(s *prefs.Settings) error {
			for _, change := range n.Changes {
				if err := change(s); err != nil {
					return err
				}
			}
			return nil
		})
	} else {
		s, err = n.Service.Settings(ctx)
	}
	if err != nil {
		return err
	}

	v := view{Settings: s}
	if n.Triggers != nil {
		if v.Triggers, err = n.Triggers.List(ctx); err != nil {
			return err
		}
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output.Structured() {
		return printers.Structured(out, n.Output, v)
	}
	pp := printers.PrettyPrint{Out: out}
	pp.Settings(v.Settings)
	if len(v.Triggers) > 0 {
		pp.Triggers(v.Triggers)
	}
	return nil
}
