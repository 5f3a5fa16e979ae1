package cli

import (
	"fmt"
	"strings"

	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/templates"
	"github.com/spf13/cobra"
)

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the spoken response catalogue",
	}

	cmd.AddCommand(newTemplatesCheckCmd())
	cmd.AddCommand(newTemplatesRenderCmd())
	return cmd
}

func loadRenderer() (*templates.Renderer, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	return templates.New(cfg.Templates.MaxValueChars, cfg.Templates.MaxLengthChars), nil
}

func newTemplatesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate every catalogue template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRenderer()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			results := r.CheckCatalogue()
			invalid := 0
			for _, name := range templates.Names() {
				v := results[name]
				state := "ok"
				if !v.Valid {
					state = "INVALID"
					invalid++
				}
				fmt.Fprintf(out, "%-30s %s\n", name, state)
				for _, e := range v.Errors {
					fmt.Fprintf(out, "    error: %s\n", e)
				}
				for _, w := range v.Warnings {
					fmt.Fprintf(out, "    warning: %s\n", w)
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid template(s)", invalid)
			}
			return nil
		},
	}
}

func newTemplatesRenderCmd() *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "render <name>",
		Short: "Render a catalogue template with sample values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, ok := templates.Catalogue[args[0]]
			if !ok {
				return fmt.Errorf("unknown template %q", args[0])
			}
			r, err := loadRenderer()
			if err != nil {
				return err
			}
			values := templates.Vars{}
			for _, kv := range vars {
				k, v, found := strings.Cut(kv, "=")
				if !found {
					return fmt.Errorf("--var %q: expected key=value", kv)
				}
				values[k] = v
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Render(tmpl, values))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "placeholder value as key=value (repeatable)")
	return cmd
}
