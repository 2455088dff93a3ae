package admin

import (
	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/spf13/cobra"
)

// RootCmd assembles the skilldexd command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "skilldexd",
		Short:   "skilldex daemon and admin CLI",
		Long:    "skilldex daemon for serving skills over HTTP and MCP, rebuilding the index and linting skills",
		Version: Version,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(root)
	root.AddCommand(ServeCmd())
	root.AddCommand(MCPCmd())
	root.AddCommand(ReindexCmd())
	root.AddCommand(StatusCmd())
	root.AddCommand(LintCmd())
	root.AddCommand(TokenCmd())

	return root
}
