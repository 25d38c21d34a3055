package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/commands/options"
	"tableflip.dev/nexday/pkg/runner/edit"
)

func addEdit(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	to := &options.TaskOptions{}
	var title string

	cmd := &cobra.Command{
		Use:   "edit <task id>",
		Short: "Change a task's title, description, difficulty or time",
		Example: `
nexday edit 3f2a --title "call the bank"
nexday edit 3f2a -x very_hard --at 09:30
nexday edit 3f2a --at none
`,
		Args: options.IDArg(io),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			d, err := to.GetDifficulty()
			if err != nil {
				return output.HandleError(err)
			}
			at, unset, err := to.GetAt(time.Now())
			if err != nil {
				return output.HandleError(err)
			}

			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			s := edit.Edit{
				ID:         io.ID,
				Difficulty: d,
				At:         at,
				ClearAt:    unset,
				Service:    e.Service,
				Output:     e.Format,
				Out:        cmd.OutOrStdout(),
			}
			if cmd.Flags().Changed("title") {
				s.Title = &title
			}
			if cmd.Flags().Changed("description") {
				s.Description = &to.Description
			}
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title.")
	options.AddTaskArgs(cmd, to)
	_ = cmd.RegisterFlagCompletionFunc("difficulty", difficultyCompletions)

	topLevel.AddCommand(cmd)
}
