package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/commands/options"
	"tableflip.dev/nexday/pkg/runner/list"
	"tableflip.dev/nexday/pkg/task"
)

func addList(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	so := &options.SortOptions{}

	cmd := &cobra.Command{
		Use:     "list [day...]",
		Aliases: []string{"ls", "get"},
		Short:   "Show yesterday, today and tomorrow",
		Example: `
nexday list
nexday list today -k
nexday list tomorrow --sort difficulty
`,
		ValidArgs: []string{"yesterday", "today", "tomorrow"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			buckets, err := parseBuckets(args)
			if err != nil {
				return output.HandleError(err)
			}
			mode, err := so.GetMode()
			if err != nil {
				return output.HandleError(err)
			}

			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			s := list.List{
				Buckets: buckets,
				Sort:    mode,
				Reverse: so.Reverse,
				ShowID:  io.ShowID,
				Service: e.Service,
				Output:  e.Format,
				Out:     cmd.OutOrStdout(),
			}
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	options.AddShowIDArgs(cmd, io)
	options.AddSortArgs(cmd, so)

	topLevel.AddCommand(cmd)
}

func parseBuckets(args []string) ([]task.Bucket, error) {
	out := make([]task.Bucket, 0, len(args))
	for _, a := range args {
		b, err := task.ParseBucket(a)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
