package cli

import (
	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/internal/logger"
	"github.com/toddgeist/ralph-wiggum-cursor/internal/mcptool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve session state over the Model Context Protocol (stdio)",
	Long: `Runs an MCP server on stdio so the agent itself can inspect the
session (status, budget, failures) and append learned guardrails.
Register this command as an MCP server in the agent's configuration.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	d, err := openWorkspace("")
	if err != nil {
		return err
	}

	// stdio carries the MCP transport, so logs are file-only.
	logger.SetupLogger(d.cfg, d.root, false)
	defer logger.Stop()

	server := mcptool.NewMCPServer(d.store, d.tracker, d.detector, d.guardrails)
	return server.ServeStdio()
}
