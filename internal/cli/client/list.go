package client

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/spf13/cobra"
)

// ListCmd lists every indexed skill.
func ListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List indexed skills",
		Long:    "Lists every indexed skill, including ones the server's enablement policy hides from search.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, "/skills", limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of skills (server default when 0)")

	return cmd
}

// CoreCmd lists enabled always-apply skills.
func CoreCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "core",
		Short: "List core (always-apply) skills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, "/skills/core", limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of skills (server default when 0)")

	return cmd
}

func runList(cmd *cobra.Command, path string, limit int) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var list SkillList
	if err := api.Get(cmd.Context(), path, &list); err != nil {
		return fmt.Errorf("failed to list skills: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return cli.PrintJSON(out, list)
	}
	if len(list.Skills) == 0 {
		fmt.Fprintln(out, "No skills found.")
		return nil
	}
	return printSkillTable(out, list.Skills)
}

func printSkillTable(out io.Writer, skills []SkillSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tCORE\tDESCRIPTION")
	for _, s := range skills {
		core := ""
		if s.AlwaysApply {
			core = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Category, core, cli.Truncate(s.Description, 60))
	}
	return w.Flush()
}
