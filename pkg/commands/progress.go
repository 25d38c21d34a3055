package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/runner/progress"
)

func addProgress(topLevel *cobra.Command) {
	s := progress.Progress{}

	cmd := &cobra.Command{
		Use:     "progress",
		Aliases: []string{"xp", "level"},
		Short:   "Show your level and XP",
		Example: `
nexday progress
nexday progress --follow
nexday progress --reset
`,
		Args: cobra.NoArgs,
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
			err = s.Do(cmd.Context())
			return output.HandleError(err)
		},
	}

	cmd.Flags().BoolVar(&s.Reset, "reset", false, "Reset progress to level 1.")
	cmd.Flags().BoolVarP(&s.Follow, "follow", "f", false, "Keep printing as XP changes.")
	cmd.MarkFlagsMutuallyExclusive("reset", "follow")

	topLevel.AddCommand(cmd)
}
