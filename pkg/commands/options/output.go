// Package options defines shared flag helpers for CLI commands.
package options

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/printers"
)

// OutputOptions
type OutputOptions struct {
	JSON   bool
	Format string
}

func AddOutputArg(cmd *cobra.Command, po *OutputOptions) {
	cmd.PersistentFlags().BoolVar(&po.JSON, "json", false,
		"Output as JSON. Shorthand for --output=json.")
	cmd.PersistentFlags().StringVarP(&po.Format, "output", "o", "text",
		"Output format. One of 'text', 'json' or 'yaml'.")
}

// Resolved returns the selected format; --json wins over --output.
func (o *OutputOptions) Resolved() (printers.Format, error) {
	if o.JSON {
		return printers.JSON, nil
	}
	return printers.ParseFormat(o.Format)
}

// HandleError prints err as a structured document when a structured format
// is selected and swallows it, so scripted callers can parse the failure.
func (o *OutputOptions) HandleError(err error) error {
	if err == nil {
		return nil
	}
	f, ferr := o.Resolved()
	if ferr != nil || !f.Structured() {
		return err
	}
	out := map[string]string{
		"error": err.Error(),
	}
	if perr := printers.Structured(color.Output, f, out); perr != nil {
		return fmt.Errorf("%w (and printing it failed: %v)", err, perr)
	}
	return nil
}
