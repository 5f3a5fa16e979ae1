package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/gateway"
	"github.com/soyeahso/switchboard/internal/store"
	"github.com/spf13/cobra"
)

func newCallsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Inspect recorded calls",
	}

	cmd.AddCommand(newCallsShowCmd())
	cmd.AddCommand(newCallsTokenCmd())
	return cmd
}

// withStore loads the config, opens its store and runs fn against it.
func withStore(fn func(cfg config.Config, st store.Store) error) error {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

func newCallsShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <callSid>",
		Short: "Show a call log and its routing events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ config.Config, st store.Store) error {
				ctx := cmd.Context()
				cl, err := st.CallLog(ctx, args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("call %q not found", args[0])
				}
				if err != nil {
					return err
				}
				events, err := st.RoutingEvents(ctx, args[0])
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(struct {
						Call   *domain.CallLog       `json:"call"`
						Events []domain.RoutingEvent `json:"events"`
					}{cl, events})
				}
				printCall(cmd.OutOrStdout(), cl, events)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printCall(w io.Writer, cl *domain.CallLog, events []domain.RoutingEvent) {
	fmt.Fprintf(w, "Call:      %s\n", cl.CallSid)
	fmt.Fprintf(w, "Business:  %s\n", cl.BusinessID)
	fmt.Fprintf(w, "From/To:   %s -> %s\n", cl.From, cl.To)
	fmt.Fprintf(w, "Mode:      %s\n", cl.Mode)
	fmt.Fprintf(w, "Status:    %s (%ds)\n", cl.Status, cl.DurationSec)
	fmt.Fprintf(w, "Consent:   %v\n", cl.ConsentGiven)
	if cl.RecordingURL != "" {
		fmt.Fprintf(w, "Recording: %s\n", cl.RecordingURL)
	}
	if cl.Transcript != "" {
		fmt.Fprintf(w, "Transcript: %s\n", cl.Transcript)
	}
	if ec := cl.FinalEmotionalContext; ec != nil {
		fmt.Fprintf(w, "Final:     emotion=%s intensity=%s flow=%s\n",
			ec.PrimaryEmotion, ec.Intensity, ec.ConversationFlow)
	}
	if cl.ConversationSummary != "" {
		fmt.Fprintf(w, "Summary:   %s\n", cl.ConversationSummary)
	}
	for _, ev := range events {
		fmt.Fprintf(w, "  %s  %-10s %s\n", ev.CreatedAt.Format(time.RFC3339), ev.Mode, ev.Status)
	}
}

func newCallsTokenCmd() *cobra.Command {
	var (
		business string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <callSid>",
		Short: "Print a signed conversation stream URL for a call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cfg.Telephony.AuthToken == "" {
				return fmt.Errorf("telephony.authToken is not set")
			}
			u := gateway.StreamURL(publicBaseURL(cfg), cfg.Telephony.AuthToken, args[0], business, ttl, time.Now())
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "business ID to pin the stream to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default 3m)")
	return cmd
}
