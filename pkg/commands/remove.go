package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/runner/remove"
)

func addRemove(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "rm <task id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete tasks. XP already earned is kept.",
		Example: `
nexday rm 3f2a 91bc
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			s := remove.Remove{
				IDs:     args,
				Service: e.Service,
				Output:  e.Format,
				Out:     cmd.OutOrStdout(),
			}
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	topLevel.AddCommand(cmd)
}
