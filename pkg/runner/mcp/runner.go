package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"tableflip.dev/nexday/pkg/app"
)

// Transport selects the mechanism used to expose the MCP server.
type Transport string

const (
	// TransportHTTP serves MCP via the streamable HTTP transport.
	TransportHTTP Transport = "http"
	// TransportStdio serves MCP over stdio.
	TransportStdio Transport = "stdio"
)

const (
	defaultAddr = "127.0.0.1:8080"
	defaultPath = "/mcp"

	shutdownGrace = 5 * time.Second
)

// ParseTransport accepts http or stdio, case-insensitively. Empty is http.
func ParseTransport(raw string) (Transport, error) {
	switch t := Transport(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TransportHTTP, nil
	case TransportHTTP, TransportStdio:
		return t, nil
	}
	return "", fmt.Errorf("unsupported transport %q (expected http or stdio)", raw)
}

// Runner coordinates MCP server startup.
type Runner struct {
	App     *app.Service
	Name    string
	Version string

	Transport Transport

	// Addr is the HTTP listen address; port 0 picks a free port.
	Addr string
	// Path is where the streamable HTTP handler is mounted.
	Path     string
	CertFile string
	KeyFile  string
	// OnListen receives the reachable endpoint URL once the listener is up.
	OnListen func(url string)

	Logger *slog.Logger
}

// Run serves the service over stdio until ctx is done.
func Run(ctx context.Context, a *app.Service) error {
	return Runner{App: a, Transport: TransportStdio}.Do(ctx)
}

func (r Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r Runner) newServer() *server.MCPServer {
	name := r.Name
	if name == "" {
		name = "nexday"
	}
	version := r.Version
	if version == "" {
		version = "dev"
	}

	srv := server.NewMCPServer(
		name+" MCP",
		version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(false),
		server.WithInstructions("Plan tasks across yesterday, today and tomorrow, complete them for XP, and trigger the daily rollover."),
		server.WithResourceRecovery(),
		server.WithRecovery(),
	)
	svc := NewService(r.App)
	registerResources(srv, svc)
	registerTools(srv, svc)
	return srv
}

// Do serves until ctx is done or the transport fails.
func (r Runner) Do(ctx context.Context) error {
	if r.App == nil {
		return ErrNoService
	}
	if (r.CertFile == "") != (r.KeyFile == "") {
		return errors.New("mcp: both tls cert and key must be provided")
	}

	srv := r.newServer()
	switch r.Transport {
	case "", TransportHTTP:
		return r.serveHTTP(ctx, srv)
	case TransportStdio:
		r.logger().Debug("mcp: serving on stdio")
		return server.NewStdioServer(srv).Listen(ctx, os.Stdin, os.Stdout)
	default:
		return fmt.Errorf("mcp: unknown transport %q", r.Transport)
	}
}

func (r Runner) endpoint() string {
	path := strings.TrimSpace(r.Path)
	if path == "" {
		return defaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (r Runner) serveHTTP(ctx context.Context, srv *server.MCPServer) error {
	addr := r.Addr
	if addr == "" {
		addr = defaultAddr
	}
	path := r.endpoint()

	mux := http.NewServeMux()
	mux.Handle(path, server.NewStreamableHTTPServer(srv))
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp: listen %s: %w", addr, err)
	}
	url := listenURL(ln.Addr(), r.CertFile != "", path)
	r.logger().Info("mcp: listening", "url", url)
	if r.OnListen != nil {
		r.OnListen(url)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if r.CertFile != "" {
			err = httpSrv.ServeTLS(ln, r.CertFile, r.KeyFile)
		} else {
			err = httpSrv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// listenURL renders the endpoint a client should dial. Wildcard binds are
// shown as loopback.
func listenURL(a net.Addr, tls bool, path string) string {
	scheme := "http"
	if tls {
		scheme = "https"
	}
	tcp, ok := a.(*net.TCPAddr)
	if !ok {
		return fmt.Sprintf("%s://%s%s", scheme, a.String(), path)
	}
	host := "127.0.0.1"
	if tcp.IP != nil && !tcp.IP.IsUnspecified() {
		host = tcp.IP.String()
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, fmt.Sprint(tcp.Port)), path)
}
