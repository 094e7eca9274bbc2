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

func newPaymentsCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List payments and record settlements",
	}
	cmd.AddCommand(newPaymentsListCmd(app), newPaymentsMarkPaidCmd(app))
	return cmd
}

func newPaymentsListCmd(app func() *App) *cobra.Command {
	var (
		status  string
		leaseID string
		page    pageFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments with due-date badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			p, err := a.requirePrincipal(cmd.Context())
			if err != nil {
				return err
			}
			if d := p.Can(authz.ResourcePayments, authz.ActionList); !d.Allowed {
				return apperrors.New(apperrors.KindAuthorization, d.Reason)
			}

			params := page.params()
			params.Filters = map[string]string{
				"status":  strings.ToUpper(status),
				"leaseId": leaseID,
			}
			res, err := a.Client.ListPayments(cmd.Context(), params)
			if err != nil {
				return a.remoteError(err)
			}
			renderPayments(cmd, p.Role, res, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (PENDING, PARTIAL, PAID, OVERDUE, CANCELED)")
	cmd.Flags().StringVar(&leaseID, "lease", "", "filter by lease id")
	page.register(cmd)
	return cmd
}

func renderPayments(cmd *cobra.Command, role authz.Role, res *db.ListResponse[db.Payment], now time.Time) {
	out := cmd.OutOrStdout()
	w := newTable(out)
	fmt.Fprintln(w, "ID\tTENANT\tAMOUNT\tDUE\tINFO\tSTATUS")
	for _, pay := range res.Items {
		meta := services.ComputePaymentStatus(pay, now)
		tenant := ""
		if pay.Tenant != nil {
			tenant = pay.Tenant.FullName
		}
		due := ""
		if pay.DueDate != nil {
			due = *pay.DueDate
		}
		info := riskStyle(meta.RiskLevel).Render(meta.DueInfo)
		status := badge(meta.BadgeText, meta.BadgeColor)
		if services.CanMarkPaid(role, pay).Allowed {
			status += mutedStyle.Render(" [mark-paid]")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			pay.ID, orDash(tenant), formatAmount(pay.Amount, pay.Currency), orDash(due), info, status)
	}
	_ = w.Flush()
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("page %d, %d of %d payments", res.Meta.Page, len(res.Items), res.Meta.Total)))
}

func newPaymentsMarkPaidCmd(app func() *App) *cobra.Command {
	var paidAt string

	cmd := &cobra.Command{
		Use:   "mark-paid <payment-id>",
		Short: "Record a payment as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			p, err := a.requirePrincipal(cmd.Context())
			if err != nil {
				return err
			}
			if paidAt != "" {
				if _, err := time.Parse(db.DateLayout, paidAt); err != nil {
					return apperrors.New(apperrors.KindValidation, "paid-at must be a date like 2006-01-02")
				}
			}

			pay, err := a.Client.GetPayment(cmd.Context(), args[0])
			if err != nil {
				return a.remoteError(err)
			}
			if d := services.CanMarkPaid(p.Role, *pay); !d.Allowed {
				return apperrors.New(apperrors.KindAuthorization, d.Reason)
			}

			updated, err := a.Client.MarkPaymentPaid(cmd.Context(), pay.ID, paidAt)
			if err != nil {
				return a.remoteError(err)
			}
			meta := services.ComputePaymentStatus(*updated, time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "%s Payment %s is now %s (%s)\n",
				successStyle.Render("✓"), updated.ID, badge(meta.BadgeText, meta.BadgeColor), meta.DueInfo)
			return nil
		},
	}

	cmd.Flags().StringVar(&paidAt, "paid-at", "", "settlement date (default: today)")
	return cmd
}

// pageFlags are the paging flags shared by list commands
type pageFlags struct {
	page     int
	pageSize int
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 20, "items per page")
}

func (f pageFlags) params() client.ListParams {
	return client.ListParams{Page: f.page, PageSize: f.pageSize}
}
