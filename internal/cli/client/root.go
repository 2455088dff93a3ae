package client

import (
	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/spf13/cobra"
)

// RootCmd assembles the skilldex client command tree.
func RootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "skilldex",
		Short: "skilldex CLI - find and load skills from a skilldex server",
		Long: `skilldex talks to a skilldexd server over HTTP.

Environment variables:
  SKILLDEX_API_TOKEN   Bearer token, when the server sets API_TOKENS
  SKILLDEX_API_URL     API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("output", false, "Output as JSON")
	root.PersistentFlags().String("api-token", "", "API token (overrides env and config)")
	root.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(root)

	root.AddCommand(SearchCmd())
	root.AddCommand(ShowCmd())
	root.AddCommand(ListCmd())
	root.AddCommand(CoreCmd())
	root.AddCommand(IndexCmd())
	root.AddCommand(AuthCmd())

	return root
}
