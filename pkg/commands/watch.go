package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/commands/options"
	"tableflip.dev/nexday/pkg/runner/list"
	"tableflip.dev/nexday/pkg/runner/watch"
)

func addWatch(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	so := &options.SortOptions{}
	var noClear bool

	cmd := &cobra.Command{
		Use:   "watch [day...]",
		Short: "Keep the window on screen, redrawing on every change",
		Example: `
nexday watch
nexday watch today -k
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

			s := watch.Watch{
				List: list.List{
					Buckets: buckets,
					Sort:    mode,
					Reverse: so.Reverse,
					ShowID:  io.ShowID,
					Service: e.Service,
					Output:  e.Format,
					Out:     cmd.OutOrStdout(),
				},
				Clear: !noClear && !e.Format.Structured(),
			}
			err = s.Do(cmd.Context())
			return output.HandleError(err)
		},
	}

	options.AddShowIDArgs(cmd, io)
	options.AddSortArgs(cmd, so)
	cmd.Flags().BoolVar(&noClear, "no-clear", false, "Append each redraw instead of clearing the screen.")

	topLevel.AddCommand(cmd)
}
