package admin

import (
	"fmt"
	"io"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/spf13/cobra"
)

// ReindexCmd runs a one-shot rebuild.
func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the skill index once and exit",
		Long:  "Rebuild the skill index if the corpus changed since the last build, or unconditionally with --force.",
		Args:  cobra.NoArgs,
		RunE:  runReindex,
	}

	cmd.Flags().Bool("force", false, "Rebuild even when the index is up to date")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cfg, appOptions{migrate: shouldMigrate(cmd)})
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Lifecycle.Ensure(ctx, service.ReindexOptions{Force: force})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return cli.PrintJSON(cmd.OutOrStdout(), reindexSummary(result))
	}
	printReindex(cmd.OutOrStdout(), result)
	return nil
}

type reindexOutput struct {
	Rebuilt   bool     `json:"rebuilt"`
	Reason    string   `json:"reason"`
	Signature string   `json:"signature"`
	Table     string   `json:"table,omitempty"`
	Records   int      `json:"records"`
	Skipped   []string `json:"skipped,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Duration  string   `json:"duration,omitempty"`
}

func reindexSummary(result *service.EnsureResult) reindexOutput {
	out := reindexOutput{
		Reason:    result.Decision.Reason,
		Signature: string(result.Signature),
	}
	if r := result.Report; r != nil {
		out.Rebuilt = true
		if g := r.Generation; g != nil {
			out.Table = g.Table
			out.Records = g.RecordCount
		}
		out.Skipped = r.Skipped
		out.Warnings = r.Warnings
		out.Duration = r.Duration.String()
	}
	return out
}

func printReindex(w io.Writer, result *service.EnsureResult) {
	s := reindexSummary(result)
	if !s.Rebuilt {
		fmt.Fprintf(w, "Index not rebuilt: %s\n", s.Reason)
		return
	}
	fmt.Fprintf(w, "Index rebuilt (%s): %d skills in %s, table %s\n", s.Reason, s.Records, s.Duration, s.Table)
	for _, skipped := range s.Skipped {
		fmt.Fprintf(w, "  skipped: %s\n", skipped)
	}
	for _, warning := range s.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}
