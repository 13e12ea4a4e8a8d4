// ABOUTME: MCP server command implementation for beatalign.
// ABOUTME: Starts the MCP server in stdio mode for AI agent integration.
package main

import (
	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/beatalign/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio, allowing AI agents to list, store
and align narratives through a standardized protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return withRuntime(ctx, func(rt *runtime) error {
		server, err := mcppkg.NewServer(rt.engine, globalNarratives, version,
			mcppkg.WithDefaults(globalConfig.AlignParams()),
			mcppkg.WithLogger(globalLogger),
		)
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	})
}
