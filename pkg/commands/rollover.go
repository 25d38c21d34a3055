package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/runner/rollover"
)

func addRollover(topLevel *cobra.Command) {
	s := rollover.Rollover{}

	cmd := &cobra.Command{
		Use:   "rollover [now]",
		Short: "Roll the days over: today becomes yesterday, tomorrow becomes today",
		Long: `Rollover runs the daily migration now. It is skipped when this period
has already rolled over unless --force is given. Yesterday's tasks older than a
day are deleted either way.`,
		Example: `
nexday rollover now
nexday rollover --force
`,
		ValidArgs: []string{"now"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			s.Service = e.Service
			s.Output = e.Format
			s.Out = cmd.OutOrStdout()
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	cmd.Flags().BoolVar(&s.Force, "force", false, "Run even if this period already rolled over.")

	topLevel.AddCommand(cmd)
}
