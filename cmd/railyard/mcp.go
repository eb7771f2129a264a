package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/railyard/pkg/adapters/mcp"
	"github.com/aretw0/railyard/pkg/session"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Starts the layout engine as an MCP server so AI agents can place and connect
track pieces as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: runMCP,
	}
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	return mcpCmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	// Logs go to stderr so they never corrupt JSON-RPC on stdout.
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(ctx, cmd, logger)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions := session.NewManager(st, append(st.sessionOptions(), session.WithLogger(logger))...)
	srv := mcp.NewServer(engine, sessions, mcp.WithLogger(logger))

	switch transport {
	case "stdio":
		logger.Info("starting Railyard MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		logger.Info("starting Railyard MCP server (SSE)", "port", port)
		if err := srv.ServeSSE(ctx, port); err != nil {
			return err
		}
		logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
}
