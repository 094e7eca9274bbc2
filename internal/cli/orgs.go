package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/rentdesk/client"
)

func newOrgsCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orgs",
		Aliases: []string{"organizations"},
		Short:   "List and switch organizations",
	}
	cmd.AddCommand(newOrgsListCmd(app), newOrgsSwitchCmd(app))
	return cmd
}

func newOrgsListCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the organizations you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			p, err := a.requirePrincipal(cmd.Context())
			if err != nil {
				return err
			}
			page, err := a.Client.ListOrganizations(cmd.Context(), client.ListParams{PageSize: 100})
			if err != nil {
				return a.remoteError(err)
			}

			out := cmd.OutOrStdout()
			w := newTable(out)
			fmt.Fprintln(w, "\tCODE\tNAME\tROLE\tID")
			for _, org := range page.Items {
				marker := ""
				if org.ID == p.OrganizationID {
					marker = "*"
				}
				role := ""
				if ref, ok := p.Session.User.FindOrganization(org.ID); ok {
					role = ref.Role
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", marker, orDash(org.Code), org.Name, orDash(role), org.ID)
			}
			return w.Flush()
		},
	}
}

func newOrgsSwitchCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id-or-code>",
		Short: "Make another organization active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			p, err := a.requirePrincipal(cmd.Context())
			if err != nil {
				return err
			}

			orgID, orgCode := args[0], ""
			if ref, ok := p.Session.User.FindOrganizationByCode(args[0]); ok {
				orgID, orgCode = ref.ID, ref.Code
			}
			res, err := a.Lifecycle.SwitchOrganization(cmd.Context(), orgID, orgCode)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Switched {
				fmt.Fprintln(out, warnStyle.Render("Warning: "+res.Warning))
				return nil
			}
			active, _ := res.Session.User.FindOrganization(res.Session.ActiveOrganizationID)
			fmt.Fprintf(out, "%s Switched to %s (%s)\n", successStyle.Render("✓"), active.Name, orDash(active.Code))
			if res.ReloadRequired {
				fmt.Fprintln(out, mutedStyle.Render("Organization data will be reloaded on the next command."))
			}
			return nil
		},
	}
}
