package client

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/spf13/cobra"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search skills",
		Long: `Searches enabled skills by describing the task.
Uses vector similarity when the server has embeddings, then full-text, then substring matching.
An empty query lists enabled skills.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var resp SearchResponse
			req := SearchRequest{Query: strings.Join(args, " "), Limit: limit}
			if err := api.Post(cmd.Context(), "/search", req, &resp); err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return cli.PrintJSON(out, resp)
			}

			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No skills found.")
				return nil
			}

			fmt.Fprintf(out, "Found %d skills (%s):\n\n", len(resp.Results), resp.Tier)
			for i, r := range resp.Results {
				fmt.Fprintf(out, "%d. %s (%.2f)\n", i+1, r.ID, r.Score)
				if r.Description != "" {
					fmt.Fprintf(out, "   %s\n", cli.Truncate(r.Description, 100))
				}
				if r.Category != "" {
					fmt.Fprintf(out, "   Category: %s\n", r.Category)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default when 0)")

	return cmd
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}
