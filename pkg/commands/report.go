package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/commands/options"
	"tableflip.dev/nexday/pkg/runner/report"
	"tableflip.dev/nexday/pkg/timeutil"
)

func addReport(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	var last string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show recently completed tasks and the XP they earned",
		Example: `
nexday report
nexday report --last 12h
nexday report --last 2d -o yaml
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			window, _, err := timeutil.ParseOffset(last)
			if err != nil {
				return output.HandleError(err)
			}
			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			s := report.Report{
				Window:  window,
				ShowID:  io.ShowID,
				Service: e.Service,
				Output:  e.Format,
				Out:     cmd.OutOrStdout(),
			}
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	cmd.Flags().StringVar(&last, "last", "1d", "time window to include (for example 12h, 2d)")
	options.AddShowIDArgs(cmd, io)

	topLevel.AddCommand(cmd)
}
