package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/rentdesk/db"
)

func newLoginCmd(app func() *App) *cobra.Command {
	var email, password, org string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Example: `  rentdesk login --email owner@acme.test --password demo1234
  RENTDESK_PASSWORD=demo1234 rentdesk login --email owner@acme.test --org HARBOR`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if password == "" {
				password = os.Getenv("RENTDESK_PASSWORD")
			}
			res, err := a.Lifecycle.Login(cmd.Context(), db.LoginRequest{
				Email:            strings.TrimSpace(email),
				Password:         password,
				OrganizationCode: org,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			s := res.Session
			active, _ := s.User.FindOrganization(s.ActiveOrganizationID)
			fmt.Fprintf(out, "%s Logged in as %s\n", successStyle.Render("✓"), s.User.Email)
			fmt.Fprintf(out, "  Organization: %s (%s)\n", active.Name, orDash(active.Code))
			if p := a.Lifecycle.Principal(cmd.Context()); p != nil {
				fmt.Fprintf(out, "  Role:         %s\n", p.Role)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or RENTDESK_PASSWORD)")
	cmd.Flags().StringVar(&org, "org", "", "organization code to activate")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app().Lifecycle.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, organization and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			p, err := a.requirePrincipal(cmd.Context())
			if err != nil {
				return err
			}
			id := a.Lifecycle.GetIdentity(cmd.Context())
			perms := a.Lifecycle.GetPermissions(cmd.Context())
			org, _ := p.Session.User.FindOrganization(p.OrganizationID)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:         %s <%s>\n", id.DisplayName, id.Email)
			fmt.Fprintf(out, "Organization: %s (%s)\n", orDash(org.Name), orDash(org.Code))
			fmt.Fprintf(out, "Role:         %s\n", p.Role)
			fmt.Fprintf(out, "Permissions:  %s\n", orDash(strings.Join(perms, ", ")))
			return nil
		},
	}
}

func newStatusCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a valid session is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			check := app().Lifecycle.Check(cmd.Context())
			out := cmd.OutOrStdout()
			if !check.Authenticated {
				fmt.Fprintf(out, "%s (next: %s)\n", warnStyle.Render("Not logged in"), check.RedirectTo)
				return nil
			}
			fmt.Fprintln(out, successStyle.Render("Logged in"))
			return nil
		},
	}
}
