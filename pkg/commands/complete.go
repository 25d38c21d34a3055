package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/commands/options"
	"tableflip.dev/nexday/pkg/runner/complete"
)

func addComplete(topLevel *cobra.Command) {
	io := &options.IDOptions{}

	cmd := &cobra.Command{
		Use:     "complete <task id>",
		Aliases: []string{"completed", "done"},
		Short:   "Complete a task and earn its XP",
		Example: `
nexday complete 3f2a
`,
		Args: options.IDArg(io),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runComplete(cmd, io.ID, false)
		},
	}

	topLevel.AddCommand(cmd)
}

func addUncomplete(topLevel *cobra.Command) {
	io := &options.IDOptions{}

	cmd := &cobra.Command{
		Use:     "uncomplete <task id>",
		Aliases: []string{"undo", "reopen"},
		Short:   "Reopen a completed task and give back its XP",
		Example: `
nexday uncomplete 3f2a
`,
		Args: options.IDArg(io),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runComplete(cmd, io.ID, true)
		},
	}

	topLevel.AddCommand(cmd)
}

func runComplete(cmd *cobra.Command, id string, undo bool) error {
	cmd.SilenceUsage = true
	e, err := load()
	if err != nil {
		return output.HandleError(err)
	}
	defer e.Close()

	s := complete.Complete{
		ID:      id,
		Undo:    undo,
		Service: e.Service,
		Output:  e.Format,
		Out:     cmd.OutOrStdout(),
	}
	err = s.Do(context.Background())
	return output.HandleError(err)
}
