package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/threadkeep/cmd/threadkeep/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio that lets an
assistant browse imported conversations and save or ignore pairs.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "threadkeep": {
        "command": "threadkeep",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ws, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := mcp.StartServer(ws, versionString()); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func versionString() string {
	if rootCmd.Version != "" {
		return rootCmd.Version
	}
	return "dev"
}
