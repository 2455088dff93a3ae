package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/spf13/cobra"
)

// ShowCmd creates the show command.
func ShowCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"get", "load"},
		Short:   "Show a skill's instructions",
		Long: `Prints a skill's instructions. Namespaced ids like "docs/xlsx" and bare names like "xlsx" both work.
With --file, prints a supporting file from the skill's directory instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			id := strings.Trim(args[0], "/")

			if file != "" {
				var f SkillFile
				if err := api.Post(cmd.Context(), "/skills/read-file", ReadFileRequest{ID: id, Path: file}, &f); err != nil {
					return fmt.Errorf("failed to read %s from %s: %w", file, id, err)
				}
				if jsonOutput(cmd) {
					return cli.PrintJSON(out, f)
				}
				fmt.Fprint(out, f.Content)
				return nil
			}

			var skill Skill
			if err := api.Get(cmd.Context(), "/skills/"+escapeID(id), &skill); err != nil {
				return fmt.Errorf("failed to get skill %s: %w", id, err)
			}
			if jsonOutput(cmd) {
				return cli.PrintJSON(out, skill)
			}

			fmt.Fprintf(out, "# %s\n\n", skill.Name)
			fmt.Fprintf(out, "ID: %s\n", skill.ID)
			fmt.Fprintf(out, "Location: %s\n", skill.Location)
			if skill.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", skill.Description)
			}
			fmt.Fprintf(out, "\n%s\n", skill.Instructions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Relative path of a supporting file to print")

	return cmd
}

// escapeID escapes each segment but keeps "/" so the wildcard route sees the namespace.
func escapeID(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
