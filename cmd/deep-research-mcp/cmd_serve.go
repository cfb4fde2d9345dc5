package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kateleext/openai-deep-research-mcp/internal/jsonrpc"
	"github.com/kateleext/openai-deep-research-mcp/internal/mcp"
	"github.com/kateleext/openai-deep-research-mcp/internal/session"
)

func newServeCommand() *cobra.Command {
	var tcpAddr string
	var tcpAllowRemote bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the research server (MCP on stdio)",
		Long: `Start the research server.

By default the server speaks the MCP protocol over stdin/stdout using
newline-delimited JSON. This is the mode MCP clients such as Claude Desktop
connect to; which tools are exposed depends on the configured provider.

Use --tcp to serve the bare JSON-RPC methods over TCP instead (useful for
debugging with a raw socket). TCP defaults to loopback (127.0.0.1) for
security. Use --tcp-allow-remote to bind to all interfaces.

JSON-RPC methods on TCP:
  research.start       Start a deep research task (returns a session id)
  research.result      Fetch the status and report of a session
  research.sessions    List sessions started by this process
  research.connection  Probe the API credential and model access`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.Default()
			svc, audit, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			defer audit.Close() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_ = audit.Log(session.NewEvent(session.EventServerStart,
				session.ServerStartData(string(cfg.Provider), effectiveModel(cfg))))
			defer func() {
				_ = audit.Log(session.NewEvent(session.EventServerStop,
					session.ServerStopData(len(svc.ListSessions().Sessions))))
			}()

			if tcpAddr != "" {
				registry := jsonrpc.NewMethodRegistry()
				jsonrpc.RegisterHandlers(registry, jsonrpc.NewHandlerContext(svc))
				server := jsonrpc.NewServer(registry, logger)

				tcpAddr = resolveTCPAddr(tcpAddr, tcpAllowRemote, logger)
				listener, err := jsonrpc.NewTCPListener(tcpAddr, server)
				if err != nil {
					return fmt.Errorf("failed to start TCP server: %w", err)
				}
				defer listener.Close() //nolint:errcheck

				// Accept blocks until the listener closes, so a canceled
				// context has to close it.
				go func() {
					<-ctx.Done()
					listener.Close() //nolint:errcheck
				}()

				fmt.Fprintf(os.Stderr, "JSON-RPC server listening on %s\n", listener.Addr())
				if err := listener.Serve(ctx); err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			}

			server := mcp.NewServer(svc, version, logger)
			fmt.Fprintf(os.Stderr, "MCP server running on stdio (%s provider)\n", cfg.Provider)
			server.ServeStdio(ctx, os.Stdin, os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "TCP address to listen on (e.g., :9000)")
	cmd.Flags().BoolVar(&tcpAllowRemote, "tcp-allow-remote", false,
		"Allow binding to non-loopback addresses (WARNING: exposes the server to the network with no authentication)")

	return cmd
}

// resolveTCPAddr ensures TCP addresses default to loopback unless --tcp-allow-remote is set.
func resolveTCPAddr(addr string, allowRemote bool, logger *slog.Logger) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// Likely just a port like "9000"; treat as ":9000".
		host = ""
		port = addr
	}

	if allowRemote {
		logger.Warn("TCP server binding to all interfaces with no authentication",
			"address", addr)
		return addr
	}

	// Default to loopback if no host specified or if 0.0.0.0/:: is used without --tcp-allow-remote.
	if host == "" || host == "0.0.0.0" || host == "::" {
		logger.Info("JSON-RPC server listening on TCP (local only)")
		return net.JoinHostPort("127.0.0.1", port)
	}

	return addr
}
