package commands

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/docgate/docgate/pkg/mcpserver/docgate"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the gateway as MCP tools over stdio",
	Long: `Run an MCP server on stdin/stdout exposing the list_providers,
summarize, chat, summarize_files and test_connection tools.

Logs never go to stdout; use --print-logs to see them on stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer a.close()
		return server.ServeStdio(docgate.NewServer(a.gateway))
	},
}
