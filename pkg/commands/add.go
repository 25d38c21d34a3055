package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/commands/options"
	"tableflip.dev/nexday/pkg/runner/add"
	"tableflip.dev/nexday/pkg/task"
)

func addAdd(topLevel *cobra.Command) {
	to := &options.TaskOptions{}
	var title string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Plan a task for tomorrow, or today with --today",
		Example: `
nexday add water the plants
nexday add --today -x hard --at 16:00 finish the report
nexday add --in 2h -d "bring the receipt" return the parcel
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a task title")
			}
			title = strings.Join(args, " ")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			d, err := to.GetDifficulty()
			if err != nil {
				return output.HandleError(err)
			}
			day, err := to.GetDay()
			if err != nil {
				return output.HandleError(err)
			}
			at, _, err := to.GetAt(time.Now())
			if err != nil {
				return output.HandleError(err)
			}

			s := add.Add{
				Title:       title,
				Description: to.Description,
				Difficulty:  task.Medium,
				Bucket:      day,
				At:          at,
				Service:     e.Service,
				Output:      e.Format,
				Out:         cmd.OutOrStdout(),
			}
			if d != nil {
				s.Difficulty = *d
			}
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	options.AddTaskArgs(cmd, to)
	options.AddDayArgs(cmd, to)
	_ = cmd.RegisterFlagCompletionFunc("difficulty", difficultyCompletions)
	_ = cmd.RegisterFlagCompletionFunc("day", dayCompletions)

	topLevel.AddCommand(cmd)
}

func difficultyCompletions(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, 0, len(task.Difficulties()))
	for _, d := range task.Difficulties() {
		out = append(out, strings.ToLower(string(d)))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func dayCompletions(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, 0, 3)
	for _, b := range task.Buckets() {
		out = append(out, strings.ToLower(string(b)))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
