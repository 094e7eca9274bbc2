package services

import (
	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/db"
)

// MenuItem is one navigation entry
type MenuItem struct {
	Resource authz.Resource `json:"resource"`
	Label    string         `json:"label"`
	Path     string         `json:"path"`
}

var menuLabels = map[authz.Resource]string{
	authz.ResourceOrganizations: "Organizations",
	authz.ResourceProperties:    "Properties",
	authz.ResourceUnits:         "Units",
	authz.ResourceTenants:       "Tenants",
	authz.ResourceLeases:        "Leases",
	authz.ResourcePayments:      "Payments",
}

// VisibleMenu returns the navigation entries role may list, in menu order.
// The permission engine is consulted once per resource.
func VisibleMenu(role authz.Role) []MenuItem {
	items := make([]MenuItem, 0, len(authz.AllResources()))
	for _, res := range authz.AllResources() {
		if !authz.Allowed(role, res, authz.ActionList) {
			continue
		}
		items = append(items, MenuItem{
			Resource: res,
			Label:    menuLabels[res],
			Path:     "/" + string(res),
		})
	}
	return items
}

var rowActions = []authz.Action{
	authz.ActionShow,
	authz.ActionCreate,
	authz.ActionEdit,
	authz.ActionDelete,
}

// VisibleActions returns the page and row actions role may perform on resource
func VisibleActions(role authz.Role, resource authz.Resource) []authz.Action {
	var actions []authz.Action
	for _, a := range rowActions {
		if authz.Allowed(role, resource, a) {
			actions = append(actions, a)
		}
	}
	return actions
}

// CanMarkPaid reports whether the mark-paid control is shown for p. It needs
// edit on payments and a payment that is still open.
func CanMarkPaid(role authz.Role, p db.Payment) authz.Decision {
	d := authz.Can(role, authz.ResourcePayments, authz.ActionEdit)
	if !d.Allowed {
		return d
	}
	switch p.Status {
	case db.PaymentPending, db.PaymentPartial, db.PaymentOverdue:
		return d
	default:
		return authz.Decision{Allowed: false, Reason: "payment is already " + string(p.Status)}
	}
}
