package admin

import (
	"fmt"
	"io"
	"time"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/spf13/cobra"
)

// StatusCmd reports the persisted index state, the active generation and the pending decision.
func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	status, err := app.Lifecycle.Status(ctx)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return cli.PrintJSON(cmd.OutOrStdout(), statusSummary(status))
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

type statusOutput struct {
	CorpusRoot   string    `json:"corpus_root"`
	Signature    string    `json:"signature"`
	StoredSig    string    `json:"stored_signature,omitempty"`
	LastBuiltAt  time.Time `json:"last_built_at,omitempty"`
	NeedsReindex bool      `json:"needs_reindex"`
	Reason       string    `json:"reason"`
	Table        string    `json:"table,omitempty"`
	Records      int       `json:"records"`
	HasVector    bool      `json:"has_vector"`
	HasText      bool      `json:"has_text"`
	HasScalar    bool      `json:"has_scalar"`
}

func statusSummary(status *service.IndexStatus) statusOutput {
	out := statusOutput{
		CorpusRoot:   status.CorpusRoot,
		Signature:    string(status.Signature),
		NeedsReindex: status.Decision.Need,
		Reason:       status.Decision.Reason,
	}
	if st := status.State; st != nil {
		out.StoredSig = string(st.Signature)
		out.LastBuiltAt = st.BuiltAt.UTC()
	}
	if g := status.Generation; g != nil {
		out.Table = g.Table
		out.Records = g.RecordCount
		out.HasVector = g.HasVector
		out.HasText = g.HasText
		out.HasScalar = g.HasScalar
	}
	return out
}

func printStatus(w io.Writer, status *service.IndexStatus) {
	s := statusSummary(status)
	fmt.Fprintf(w, "Corpus:      %s\n", s.CorpusRoot)
	fmt.Fprintf(w, "Signature:   %s\n", s.Signature)
	if s.StoredSig != "" {
		fmt.Fprintf(w, "Stored:      %s (built %s)\n", s.StoredSig, s.LastBuiltAt.Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "Stored:      none")
	}
	fmt.Fprintf(w, "Reindex:     %t (%s)\n", s.NeedsReindex, s.Reason)
	if s.Table == "" {
		fmt.Fprintln(w, "Generation:  none")
		return
	}
	fmt.Fprintf(w, "Generation:  %s, %d skills (vector=%t text=%t scalar=%t)\n",
		s.Table, s.Records, s.HasVector, s.HasText, s.HasScalar)
}
