package cli

import (
	"errors"
	"fmt"

	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/ivr"
	"github.com/soyeahso/switchboard/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newBusinessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "business",
		Short: "Manage business profiles",
	}

	cmd.AddCommand(newBusinessSetCmd())
	cmd.AddCommand(newBusinessShowCmd())
	return cmd
}

func newBusinessSetCmd() *cobra.Command {
	var b domain.Business

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or update a business profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ config.Config, st store.Store) error {
				ctx := cmd.Context()
				cur := domain.Business{ID: args[0]}
				existing, err := st.Business(ctx, args[0])
				switch {
				case err == nil:
					cur = *existing
				case !errors.Is(err, store.ErrNotFound):
					return err
				}

				flags := cmd.Flags()
				merge := func(flag string, dst *string, val string) {
					if flags.Changed(flag) {
						*dst = val
					}
				}
				merge("name", &cur.Name, b.Name)
				merge("sales", &cur.SalesNumber, b.SalesNumber)
				merge("support", &cur.SupportNumber, b.SupportNumber)
				merge("human", &cur.HumanNumber, b.HumanNumber)
				merge("tone", &cur.Profile.ToneStyle, b.Profile.ToneStyle)
				merge("empathy", &cur.Profile.EmpathyLevel, b.Profile.EmpathyLevel)
				merge("style", &cur.Profile.CommunicationStyle, b.Profile.CommunicationStyle)
				merge("patience", &cur.Profile.PatienceLevel, b.Profile.PatienceLevel)
				if flags.Changed("interruptions") {
					cur.Profile.InterruptionAllowed = b.Profile.InterruptionAllowed
				}

				if err := st.SaveBusiness(ctx, cur); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved business %s\n", cur.ID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&b.Name, "name", "", "business name spoken in greetings")
	f.StringVar(&b.SalesNumber, "sales", "", "sales line (E.164)")
	f.StringVar(&b.SupportNumber, "support", "", "support line (E.164)")
	f.StringVar(&b.HumanNumber, "human", "", "human escalation line (E.164)")
	f.StringVar(&b.Profile.ToneStyle, "tone", "", "persona tone style")
	f.StringVar(&b.Profile.EmpathyLevel, "empathy", "", "persona empathy level")
	f.StringVar(&b.Profile.CommunicationStyle, "style", "", "persona communication style")
	f.StringVar(&b.Profile.PatienceLevel, "patience", "", "persona patience level")
	f.BoolVar(&b.Profile.InterruptionAllowed, "interruptions", false, "allow the caller to interrupt")
	return cmd
}

func newBusinessShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a business as calls resolve it, defaults filled in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg config.Config, st store.Store) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				}
				biz, err := ivr.NewDirectory(st, cfg.Telephony).Lookup(cmd.Context(), id)
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(biz)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}
