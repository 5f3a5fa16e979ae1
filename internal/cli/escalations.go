package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/store"
	"github.com/spf13/cobra"
)

func newEscalationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "Review escalation records",
	}

	cmd.AddCommand(newEscalationsListCmd())
	return cmd
}

func newEscalationsListCmd() *cobra.Command {
	var (
		callSid string
		limit   int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List escalations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ config.Config, st store.Store) error {
				recs, err := st.Escalations(cmd.Context(), callSid, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(out, "No escalations.")
					return nil
				}
				for _, r := range recs {
					fmt.Fprintf(out, "%s  %-8s %-9s %-22s %s  %s\n",
						r.CreatedAt.Format(time.RFC3339), r.Severity, r.Type, r.Category, r.CallSid, r.TriggerReason)
					if r.TranscriptSnippet != "" {
						fmt.Fprintf(out, "    %q\n", r.TranscriptSnippet)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&callSid, "call", "", "only escalations for this call")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
