// Package authz provides the role-based permission engine shared by the console,
// the REST client and the stub API.
//
// The engine is a total function over the closed Role, Resource and Action sets:
// every (role, resource, action) triple has exactly one Decision and the same
// triple always yields the same Decision.
package authz

import (
	"strings"
)

// Role represents a user's role inside the active organization
type Role string

const (
	RoleOwner    Role = "OWNER"    // Full control
	RoleAdmin    Role = "ADMIN"    // Full control
	RoleOperator Role = "OPERATOR" // Manages everything except the organization itself
	RoleStaff    Role = "STAFF"    // Same grants as operator
	RoleViewer   Role = "VIEWER"   // Read-only access
	RoleUnknown  Role = ""         // Anonymous or unrecognized
)

// ParseRole normalizes a raw role string. Anything outside the closed set
// resolves to RoleUnknown.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner
	case RoleAdmin:
		return RoleAdmin
	case RoleOperator:
		return RoleOperator
	case RoleStaff:
		return RoleStaff
	case RoleViewer:
		return RoleViewer
	default:
		return RoleUnknown
	}
}

// ResolveRole picks the effective role from a user record: the explicit role
// when set, otherwise the first entry of roles.
func ResolveRole(role string, roles []string) Role {
	if strings.TrimSpace(role) != "" {
		return ParseRole(role)
	}
	if len(roles) > 0 {
		return ParseRole(roles[0])
	}
	return RoleUnknown
}

// Known reports whether the role is one of the enumerated roles.
func (r Role) Known() bool {
	return ParseRole(string(r)) != RoleUnknown
}

// Resource represents the type of record being accessed
type Resource string

const (
	ResourceOrganizations Resource = "organizations"
	ResourceProperties    Resource = "properties"
	ResourceUnits         Resource = "units"
	ResourceTenants       Resource = "tenants"
	ResourceLeases        Resource = "leases"
	ResourcePayments      Resource = "payments"
)

// AllResources lists every resource in menu order.
func AllResources() []Resource {
	return []Resource{
		ResourceOrganizations,
		ResourceProperties,
		ResourceUnits,
		ResourceTenants,
		ResourceLeases,
		ResourcePayments,
	}
}

// ParseResource returns the resource named by raw and whether it exists.
func ParseResource(raw string) (Resource, bool) {
	r := Resource(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllResources() {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Action represents an operation that can be performed on a resource
type Action string

const (
	ActionList   Action = "list"
	ActionShow   Action = "show"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit" // also covers marking a payment as paid
	ActionDelete Action = "delete"
)

// AllActions lists every action.
func AllActions() []Action {
	return []Action{ActionList, ActionShow, ActionCreate, ActionEdit, ActionDelete}
}

// ParseAction returns the action named by raw and whether it exists.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllActions() {
		if a == known {
			return a, true
		}
	}
	return "", false
}

// Deny reasons
const (
	ReasonUnknownRole       = "not authenticated or unknown role"
	ReasonViewerReadOnly    = "viewer role is read-only"
	ReasonOrganizationWrite = "cannot modify organization"
	ReasonUnknownTarget     = "unknown resource or action"
)

// Decision is the result of a permission check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Can decides whether role may perform action on resource. Rules are
// evaluated in order and the first match wins.
func Can(role Role, resource Resource, action Action) Decision {
	switch role {
	case RoleOwner, RoleAdmin:
		return allow()
	case RoleViewer:
		if isRead(action) {
			return allow()
		}
		return deny(ReasonViewerReadOnly)
	case RoleOperator, RoleStaff:
		if resource == ResourceOrganizations {
			if isRead(action) {
				return allow()
			}
			return deny(ReasonOrganizationWrite)
		}
		if isResource(resource) && isAction(action) {
			return allow()
		}
		return deny(ReasonUnknownTarget)
	default:
		return deny(ReasonUnknownRole)
	}
}

// Allowed is shorthand for Can(...).Allowed.
func Allowed(role Role, resource Resource, action Action) bool {
	return Can(role, resource, action).Allowed
}

func isRead(action Action) bool {
	switch action {
	case ActionList, ActionShow:
		return true
	case ActionCreate, ActionEdit, ActionDelete:
		return false
	default:
		return false
	}
}

func isResource(resource Resource) bool {
	switch resource {
	case ResourceOrganizations, ResourceProperties, ResourceUnits,
		ResourceTenants, ResourceLeases, ResourcePayments:
		return true
	default:
		return false
	}
}

func isAction(action Action) bool {
	switch action {
	case ActionList, ActionShow, ActionCreate, ActionEdit, ActionDelete:
		return true
	default:
		return false
	}
}
