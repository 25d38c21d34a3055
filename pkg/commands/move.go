package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/commands/options"
	"tableflip.dev/nexday/pkg/runner/move"
	"tableflip.dev/nexday/pkg/task"
)

func addMove(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	var to, direction string

	cmd := &cobra.Command{
		Use:     "move <task id>",
		Aliases: []string{"mv"},
		Short:   "Move a task to another day",
		Example: `
nexday move 3f2a --to today
nexday move 3f2a --left
nexday move 3f2a --direction right
`,
		Args: options.IDArg(io),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			s := move.Move{ID: io.ID}
			switch {
			case to != "" && direction != "":
				return output.HandleError(errors.New("--to and a direction are mutually exclusive"))
			case to != "":
				b, err := task.ParseBucket(to)
				if err != nil {
					return output.HandleError(err)
				}
				s.To = b
			case direction != "":
				dir, err := task.ParseDirection(direction)
				if err != nil {
					return output.HandleError(err)
				}
				s.Direction = dir
			default:
				return output.HandleError(errors.New("requires --to or a direction"))
			}

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

	cmd.Flags().StringVar(&to, "to", "", "Destination day: yesterday, today or tomorrow.")
	cmd.Flags().StringVar(&direction, "direction", "", "Move one day left or right.")
	cmd.Flags().BoolP("left", "l", false, "Move one day toward yesterday.")
	cmd.Flags().BoolP("right", "r", false, "Move one day toward tomorrow.")
	_ = cmd.RegisterFlagCompletionFunc("to", dayCompletions)
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		left, _ := cmd.Flags().GetBool("left")
		right, _ := cmd.Flags().GetBool("right")
		if left && right {
			return errors.New("--left and --right are mutually exclusive")
		}
		if (left || right) && direction != "" {
			return errors.New("--direction conflicts with --left/--right")
		}
		if left {
			direction = string(task.Left)
		}
		if right {
			direction = string(task.Right)
		}
		return nil
	}

	topLevel.AddCommand(cmd)
}

func addReorder(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "reorder <day> <task id>...",
		Short: "Set the manual order of a day",
		Long: `Reorder lists every task of a day in the desired order and switches
sorting to manual.`,
		Example: `
nexday reorder today 3f2a 91bc 07de
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			b, err := task.ParseBucket(args[0])
			if err != nil {
				return output.HandleError(err)
			}
			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			s := move.Reorder{
				Bucket:  b,
				IDs:     args[1:],
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
