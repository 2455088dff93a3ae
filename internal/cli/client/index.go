package client

import (
	"fmt"
	"io"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/spf13/cobra"
)

// IndexCmd groups the remote index commands.
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect or rebuild the server's skill index",
	}

	cmd.AddCommand(indexStatusCmd())
	cmd.AddCommand(indexRebuildCmd())

	return cmd
}

func indexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index state and whether a rebuild is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var status IndexStatus
			if err := api.Get(cmd.Context(), "/index/status", &status); err != nil {
				return fmt.Errorf("failed to get index status: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return cli.PrintJSON(out, status)
			}

			fmt.Fprintf(out, "Corpus:     %s\n", status.CorpusRoot)
			fmt.Fprintf(out, "Signature:  %s\n", status.Signature)
			if status.LastBuiltAt != "" {
				fmt.Fprintf(out, "Last built: %s\n", status.LastBuiltAt)
			} else {
				fmt.Fprintln(out, "Last built: never")
			}
			fmt.Fprintf(out, "Reindex:    %t (%s)\n", status.NeedsReindex, status.Reason)
			printGeneration(out, status.Generation)
			return nil
		},
	}
}

func indexRebuildCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index if stale, or always with --force",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var result RebuildResult
			if err := api.Post(cmd.Context(), "/index/rebuild", map[string]bool{"force": force}, &result); err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return cli.PrintJSON(out, result)
			}

			if !result.Rebuilt {
				fmt.Fprintf(out, "Index not rebuilt: %s\n", result.Reason)
				return nil
			}
			fmt.Fprintf(out, "Index rebuilt (%s) in %dms\n", result.Reason, result.DurationMS)
			printGeneration(out, result.Generation)
			for _, s := range result.Skipped {
				fmt.Fprintf(out, "  skipped: %s\n", s)
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when the index is up to date")

	return cmd
}

func printGeneration(out io.Writer, g *Generation) {
	if g == nil {
		fmt.Fprintln(out, "Generation: none")
		return
	}
	fmt.Fprintf(out, "Generation: %s (%d skills, vector=%t text=%t scalar=%t)\n",
		g.Table, g.RecordCount, g.HasVector, g.HasText, g.HasScalar)
}
