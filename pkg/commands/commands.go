package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/nexday/pkg/commands/options"
)

var (
	output = &options.OutputOptions{}
	logs   = &options.LogOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "nexday",
		Short: base.Wrap80("Plan today and tomorrow, roll the days over, and level up by getting things done."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	options.AddOutputArg(cmd, output)
	options.AddLogArgs(cmd, logs)

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addKey(topLevel)
	addAdd(topLevel)
	addList(topLevel)
	addComplete(topLevel)
	addUncomplete(topLevel)
	addMove(topLevel)
	addReorder(topLevel)
	addEdit(topLevel)
	addRemove(topLevel)
	addProgress(topLevel)
	addSettings(topLevel)
	addRollover(topLevel)
	addReport(topLevel)
	addWatch(topLevel)
	addServe(topLevel)
	addMCP(topLevel)
	addVersion(topLevel)
}
