package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/pkg/adapters/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Assembles the tree files and exposes the machine as an MCP Server.
Agents can list and inspect states, change state and read the Mermaid graph.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			addr, _ := cmd.Flags().GetString("addr")
			baseURL, _ := cmd.Flags().GetString("base-url")

			// Logs go to Stderr so they never corrupt JSON-RPC on Stdout.
			build, _, logger, err := buildMachine(cmd)
			if err != nil {
				return err
			}
			srv := mcp.NewServer(build.Machine, logger)

			switch transport {
			case "stdio":
				logger.Info("Starting Canopy MCP Server (Stdio)")
				if err := srv.ServeStdio(); err != nil {
					return fmt.Errorf("MCP server execution failed: %w", err)
				}
			case "sse":
				if baseURL == "" {
					baseURL = "http://localhost" + addr
				}
				sigCtx := cli.NewSignalContext(context.Background())
				defer sigCtx.Cancel()

				logger.Info("Starting Canopy MCP Server (SSE)", "addr", addr, "base_url", baseURL)
				if err := srv.ServeSSE(sigCtx, addr, baseURL); err != nil {
					return fmt.Errorf("MCP server execution failed: %w", err)
				}
				logger.Info("MCP Server stopped gracefully")
			default:
				return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
			}
			return nil
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	cmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients (default: http://localhost<addr>)")
	return cmd
}
