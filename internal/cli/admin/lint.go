package admin

import (
	"fmt"
	"io"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/spf13/cobra"
)

// LintCmd validates every indexed skill and fails when any fatal issue exists.
func LintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate indexed skills",
		Long: `Validate every indexed skill against the authoring rules.
The index is brought up to date first unless --skip-auto-reindex is set.
Exits non-zero when any skill has a fatal issue.`,
		Args: cobra.NoArgs,
		RunE: runLint,
	}

	reindexFlags(cmd)
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
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

	if _, err := app.Ensure(ctx, reindexOptions(cmd, cfg)); err != nil {
		return err
	}

	report, err := app.Skills.Lint(ctx)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		if err := cli.PrintJSON(cmd.OutOrStdout(), lintSummary(report)); err != nil {
			return err
		}
	} else {
		printLint(cmd.OutOrStdout(), report)
	}

	if report.HasFatal() {
		return fmt.Errorf("lint failed: %d fatal issue(s)", report.Fatal)
	}
	return nil
}

type lintIssue struct {
	Severity string `json:"severity"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

type lintOutput struct {
	Checked  int                    `json:"checked"`
	Fatal    int                    `json:"fatal"`
	Warnings int                    `json:"warnings"`
	Skills   map[string][]lintIssue `json:"skills"`
}

func lintSummary(report *service.LintReport) lintOutput {
	out := lintOutput{
		Checked:  report.Checked,
		Fatal:    report.Fatal,
		Warnings: report.Warnings,
		Skills:   make(map[string][]lintIssue, len(report.Results)),
	}
	for _, r := range report.Results {
		for _, issue := range r.Issues {
			out.Skills[r.SkillID] = append(out.Skills[r.SkillID], lintIssue{
				Severity: string(issue.Severity),
				Field:    issue.Field,
				Message:  issue.Message,
			})
		}
	}
	return out
}

func printLint(w io.Writer, report *service.LintReport) {
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s\n", r.SkillID)
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "  %-7s %s\n", issue.Severity, issue)
		}
	}
	fmt.Fprintf(w, "%d skills checked: %d fatal, %d warnings\n", report.Checked, report.Fatal, report.Warnings)
}
