package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Switchboard status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Switchboard %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Fprintf(out, "Config:    %s\n", paths.Config)
			fmt.Fprintf(out, "Data:      %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:      %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:    error loading: %v\n", err)
				return nil
			}
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:    not found (using defaults)")
			}

			fmt.Fprintf(out, "Gateway:   port=%d bind=%s tls=%v url=%s\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.TLS.Enabled, publicBaseURL(cfg))
			fmt.Fprintf(out, "Business:  id=%s name=%q sales=%s support=%s human=%s\n",
				cfg.Telephony.BusinessID, cfg.Telephony.BusinessName,
				cfg.Telephony.SalesNumber, cfg.Telephony.SupportNumber, cfg.Telephony.HumanNumber)
			fmt.Fprintf(out, "Limiter:   backend=%s max=%d window=%s\n",
				cfg.RateLimit.Backend, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
			fmt.Fprintf(out, "Menu:      retries=%d gather=%ds idle=%s\n",
				cfg.IVR.MaxRetries, cfg.IVR.GatherTimeoutSeconds, cfg.IVR.SessionIdle())

			model := cfg.Generative.Model
			if model == "" {
				model = "(provider default)"
			}
			fmt.Fprintf(out, "LLM:       provider=%s model=%s timeout=%s\n",
				cfg.Generative.Provider, model, cfg.Generative.Timeout())
			if len(cfg.Generative.Fallbacks) > 0 {
				fmt.Fprintf(out, "Fallbacks: %s\n", strings.Join(cfg.Generative.Fallbacks, ", "))
			}

			storePath := cfg.Store.Path
			if storePath == "" && cfg.Store.Driver != "memory" {
				storePath = paths.DatabasePath()
			}
			fmt.Fprintf(out, "Store:     driver=%s %s\n", cfg.Store.Driver, storePath)

			if cfg.Notify.Slack != nil {
				fmt.Fprintf(out, "Slack:     channel=%s\n", cfg.Notify.Slack.Channel)
			} else {
				fmt.Fprintln(out, "Slack:     (not configured)")
			}
			if cfg.Metrics.Enabled {
				fmt.Fprintf(out, "Metrics:   /metrics namespace=%s\n", cfg.Metrics.Namespace)
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
