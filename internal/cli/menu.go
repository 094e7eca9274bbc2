package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/rentdesk/apperrors"
	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/services"
)

func newMenuCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Show the sections and actions your role can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app().requirePrincipal(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTitle(out, fmt.Sprintf("Menu for %s", p.Role))
			w := newTable(out)
			fmt.Fprintln(w, "SECTION\tPATH\tACTIONS")
			for _, item := range services.VisibleMenu(p.Role) {
				actions := services.VisibleActions(p.Role, item.Resource)
				names := make([]string, 0, len(actions))
				for _, a := range actions {
					names = append(names, string(a))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", item.Label, item.Path, orDash(strings.Join(names, ", ")))
			}
			return w.Flush()
		},
	}
}

func newCanCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "can <resource> <action>",
		Short: "Ask the permission engine about your role",
		Example: `  rentdesk can payments edit
  rentdesk can organizations delete`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, ok := authz.ParseResource(args[0])
			if !ok {
				return apperrors.New(apperrors.KindValidation, fmt.Sprintf("unknown resource %q", args[0]))
			}
			act, ok := authz.ParseAction(args[1])
			if !ok {
				return apperrors.New(apperrors.KindValidation, fmt.Sprintf("unknown action %q", args[1]))
			}

			// anonymous callers get the deny decision rather than an error
			p := app().Lifecycle.Principal(cmd.Context())
			d := p.Can(res, act)

			out := cmd.OutOrStdout()
			if d.Allowed {
				fmt.Fprintf(out, "%s %s %s\n", successStyle.Render("allowed:"), act, res)
				return nil
			}
			fmt.Fprintf(out, "%s %s %s (%s)\n", errorStyle.Render("denied:"), act, res, d.Reason)
			return nil
		},
	}
}
