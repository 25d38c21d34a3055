package commands

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/runner/mcp"
)

type mcpFlags struct {
	transport   string
	httpHost    string
	httpPort    int
	httpPath    string
	httpTLSCert string
	httpTLSKey  string
}

func (f *mcpFlags) add(cmd *cobra.Command, transport string) {
	cmd.Flags().StringVar(&f.transport, "transport", transport, "transport to use: http or stdio")
	cmd.Flags().StringVar(&f.httpHost, "http-host", "127.0.0.1", "host/interface for HTTP transport")
	cmd.Flags().IntVar(&f.httpPort, "http-port", 8080, "port for HTTP transport (use 0 for random)")
	cmd.Flags().StringVar(&f.httpPath, "http-path", "/mcp", "HTTP endpoint path")
	cmd.Flags().StringVar(&f.httpTLSCert, "http-tls-cert", "", "TLS certificate file for HTTPS")
	cmd.Flags().StringVar(&f.httpTLSKey, "http-tls-key", "", "TLS private key file for HTTPS")
}

// runner builds the MCP runner described by the flags, without a service.
func (f *mcpFlags) runner(cmd *cobra.Command) (mcp.Runner, error) {
	transport, err := mcp.ParseTransport(f.transport)
	if err != nil {
		return mcp.Runner{}, err
	}
	if f.httpPort < 0 || f.httpPort > 65535 {
		return mcp.Runner{}, fmt.Errorf("invalid http-port %d", f.httpPort)
	}
	host := strings.TrimSpace(f.httpHost)
	if host == "" {
		host = "127.0.0.1"
	}

	return mcp.Runner{
		Name:      "nexday",
		Version:   version,
		Transport: transport,
		Addr:      net.JoinHostPort(host, strconv.Itoa(f.httpPort)),
		Path:      f.httpPath,
		CertFile:  strings.TrimSpace(f.httpTLSCert),
		KeyFile:   strings.TrimSpace(f.httpTLSKey),
		OnListen: func(url string) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "MCP HTTP server listening on %s\n", url)
		},
	}, nil
}

func addMCP(topLevel *cobra.Command) {
	f := &mcpFlags{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "start the Model Context Protocol server",
		Long: `Launch an MCP server that exposes the three-day window, task mutations,
progress and rollover through the Model Context Protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			runner, err := f.runner(cmd)
			if err != nil {
				return err
			}
			e, err := load()
			if err != nil {
				return err
			}
			defer e.Close()

			runner.App = e.Service
			runner.Logger = e.Logger
			return runner.Do(cmd.Context())
		},
	}

	f.add(cmd, string(mcp.TransportHTTP))

	topLevel.AddCommand(cmd)
}
