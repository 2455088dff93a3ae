package admin

import (
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/skilldex/internal/mcpserver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// MCPCmd serves the MCP tools over stdio for a single local client.
func MCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdio",
		Long: `Serve search_skills, load_skill and read_skill_file over stdin/stdout.
Logs go to stderr so the protocol stream stays clean.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}

	reindexFlags(cmd)

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer initSentry(cfg)()

	app, err := newApp(ctx, cfg, appOptions{migrate: shouldMigrate(cmd)})
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Ensure(ctx, reindexOptions(cmd, cfg)); err != nil {
		return err
	}

	logrus.Info("serving MCP over stdio")
	return mcpserver.New(app.Skills, Version).RunStdio(ctx)
}
