package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/notify"
	"tableflip.dev/nexday/pkg/runner/mcp"
	"tableflip.dev/nexday/pkg/runner/serve"
)

func addServe(topLevel *cobra.Command) {
	f := &mcpFlags{}
	var (
		withMCP bool
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily rollover and reminders in the foreground",
		Long: `Serve keeps the rollover and daily reminder triggers on schedule and
fires task reminders at their scheduled time. A trigger missed while serve was
not running fires as soon as it starts. With --mcp the MCP HTTP endpoint is
served from the same process.`,
		Example: `
nexday serve
nexday serve --mcp --http-port 9090
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			var mr *mcp.Runner
			if withMCP {
				r, err := f.runner(cmd)
				if err != nil {
					return err
				}
				if r.Transport == mcp.TransportStdio {
					return errors.New("serve only supports the http MCP transport")
				}
				mr = &r
			}

			e, err := load()
			if err != nil {
				return err
			}
			defer e.Close()

			notifier := notify.Multi{notify.Log{Logger: e.Logger}}
			if !quiet {
				notifier = append(notifier, notify.NewTerminal())
			}
			e.Service.Notifier = notifier

			s := serve.Serve{
				Service:   e.Service,
				Scheduler: e.Scheduler,
				Notifier:  notifier,
				MCP:       mr,
				Logger:    e.Logger,
			}
			return s.Do(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Also serve MCP over HTTP.")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Log notifications instead of printing them.")
	f.add(cmd, string(mcp.TransportHTTP))

	topLevel.AddCommand(cmd)
}
