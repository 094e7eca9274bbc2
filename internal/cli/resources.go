package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/rentdesk/apperrors"
	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/client"
	"github.com/phonginreallife/rentdesk/db"
	"github.com/phonginreallife/rentdesk/services"
)

// requireList loads the principal and checks list permission on resource
func requireList(cmd *cobra.Command, a *App, resource authz.Resource) (*services.Principal, error) {
	p, err := a.requirePrincipal(cmd.Context())
	if err != nil {
		return nil, err
	}
	if d := p.Can(resource, authz.ActionList); !d.Allowed {
		return nil, apperrors.New(apperrors.KindAuthorization, d.Reason)
	}
	return p, nil
}

func newPropertiesCmd(app func() *App) *cobra.Command {
	var page pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := requireList(cmd, a, authz.ResourceProperties); err != nil {
				return err
			}
			res, err := a.Client.ListProperties(cmd.Context(), page.params())
			if err != nil {
				return a.remoteError(err)
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tADDRESS")
			for _, p := range res.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, orDash(p.Address))
			}
			return w.Flush()
		},
	}
	page.register(list)

	cmd := &cobra.Command{Use: "properties", Short: "Work with properties"}
	cmd.AddCommand(list)
	return cmd
}

func newTenantsCmd(app func() *App) *cobra.Command {
	var page pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := requireList(cmd, a, authz.ResourceTenants); err != nil {
				return err
			}
			res, err := a.Client.ListTenants(cmd.Context(), page.params())
			if err != nil {
				return a.remoteError(err)
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
			for _, t := range res.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.FullName, orDash(t.Email), orDash(t.Phone))
			}
			return w.Flush()
		},
	}
	page.register(list)

	cmd := &cobra.Command{Use: "tenants", Short: "Work with tenants"}
	cmd.AddCommand(list)
	return cmd
}

func newUnitsCmd(app func() *App) *cobra.Command {
	var propertyID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List units with their occupancy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := requireList(cmd, a, authz.ResourceUnits); err != nil {
				return err
			}
			units, err := a.Client.AllUnits(cmd.Context(), client.ListParams{
				Filters: map[string]string{"propertyId": propertyID},
			})
			if err != nil {
				return a.remoteError(err)
			}
			// occupancy needs every lease, not just the first page
			leases, err := a.Client.AllLeases(cmd.Context(), client.ListParams{})
			if err != nil {
				return a.remoteError(err)
			}
			occupancy := services.ResolveUnitOccupancy(units, leases, time.Now())

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tUNIT\tTENANT\tLEASE\tNOTE\tOCCUPANCY")
			for _, u := range units {
				occ := occupancy[u.ID]
				tenant, period := "", ""
				if occ.Lease != nil {
					if occ.Lease.Tenant != nil {
						tenant = occ.Lease.Tenant.FullName
					}
					period = leasePeriod(*occ.Lease)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					u.ID, u.Name, orDash(tenant), orDash(period), orDash(occ.TooltipText), badge(occ.Label, occ.Color))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&propertyID, "property", "", "filter by property id")

	cmd := &cobra.Command{Use: "units", Short: "Work with units"}
	cmd.AddCommand(list)
	return cmd
}

func newLeasesCmd(app func() *App) *cobra.Command {
	var (
		unitID string
		status string
		page   pageFlags
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List leases, or the lease history of one unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := requireList(cmd, a, authz.ResourceLeases); err != nil {
				return err
			}

			var leases []db.Lease
			if unitID != "" {
				items, err := a.Client.LeasesForUnit(cmd.Context(), unitID)
				if err != nil {
					return a.remoteError(err)
				}
				leases = items
			} else {
				params := page.params()
				params.Filters = map[string]string{"status": strings.ToUpper(status)}
				res, err := a.Client.ListLeases(cmd.Context(), params)
				if err != nil {
					return a.remoteError(err)
				}
				leases = res.Items
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tUNIT\tTENANT\tPERIOD\tRENT\tSTATUS")
			for _, l := range leases {
				tenant := ""
				if l.Tenant != nil {
					tenant = l.Tenant.FullName
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					l.ID, shortID(l.UnitID), orDash(tenant), leasePeriod(l), formatAmount(l.RentAmount, l.Currency), leaseBadge(l.Status))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&unitID, "unit", "", "show the lease history of one unit, newest first")
	list.Flags().StringVar(&status, "status", "", "filter by status (DRAFT, PENDING, ACTIVE, EXPIRED, TERMINATED)")
	page.register(list)

	cmd := &cobra.Command{Use: "leases", Short: "Work with leases"}
	cmd.AddCommand(list)
	return cmd
}

func leasePeriod(l db.Lease) string {
	end := "open"
	if l.EndDate != nil && *l.EndDate != "" {
		end = *l.EndDate
	}
	return l.StartDate + " → " + end
}

func leaseBadge(s db.LeaseStatus) string {
	switch s {
	case db.LeaseActive:
		return badge(string(s), services.ColorGreen)
	case db.LeasePending:
		return badge(string(s), services.ColorBlue)
	default:
		return string(s)
	}
}
