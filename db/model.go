package db

import (
	"fmt"
	"strings"
	"time"
)

// ===========================
// SESSION MODELS
// ===========================

// OrganizationRef is an organization the signed-in user belongs to
type OrganizationRef struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"` // membership role, informational
}

// SessionUser is the user identity carried in the session
type SessionUser struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	FullName      string            `json:"fullName,omitempty"`
	Role          string            `json:"role,omitempty"`
	Roles         []string          `json:"roles"`
	Organizations []OrganizationRef `json:"organizations"`
}

// FindOrganization looks up one of the user's organizations by ID
func (u SessionUser) FindOrganization(id string) (OrganizationRef, bool) {
	for _, org := range u.Organizations {
		if org.ID == id {
			return org, true
		}
	}
	return OrganizationRef{}, false
}

// FindOrganizationByCode looks up one of the user's organizations by code (case-insensitive)
func (u SessionUser) FindOrganizationByCode(code string) (OrganizationRef, bool) {
	for _, org := range u.Organizations {
		if org.Code != "" && strings.EqualFold(org.Code, code) {
			return org, true
		}
	}
	return OrganizationRef{}, false
}

// SessionPayload is the persisted authentication bundle
type SessionPayload struct {
	Token                  string      `json:"token"`
	ActiveOrganizationID   string      `json:"activeOrganizationId"`
	ActiveOrganizationCode string      `json:"activeOrganizationCode,omitempty"`
	User                   SessionUser `json:"user"`
}

// Validate reports the first required field that is missing
func (p *SessionPayload) Validate() error {
	if p == nil {
		return fmt.Errorf("session payload is nil")
	}
	if strings.TrimSpace(p.Token) == "" {
		return fmt.Errorf("session token is empty")
	}
	if p.ActiveOrganizationID == "" {
		return fmt.Errorf("session has no active organization")
	}
	if p.User.ID == "" {
		return fmt.Errorf("session user has no id")
	}
	return nil
}

// Authenticated reports whether the payload describes a signed-in user
func (p *SessionPayload) Authenticated() bool {
	return p != nil && strings.TrimSpace(p.Token) != "" && p.User.ID != ""
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email            string `json:"email" binding:"required"`
	Password         string `json:"password" binding:"required"`
	OrganizationCode string `json:"organizationCode,omitempty"`
}

// LoginResponse is the body returned by POST /auth/login
type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	User        SessionUser `json:"user"`
}

// ===========================
// PROPERTY MODELS
// ===========================

// Organization represents a tenant of the platform (a property management company)
type Organization struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Property represents a building or site managed by an organization
type Property struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Unit represents a rentable unit inside a property
type Unit struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	PropertyID     string `json:"propertyId"`
	Name           string `json:"name"`
	Floor          int    `json:"floor,omitempty"`
	Bedrooms       int    `json:"bedrooms,omitempty"`
	AreaSqm        int    `json:"areaSqm,omitempty"`
}

// Tenant represents a person renting a unit
type Tenant struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	FullName       string `json:"fullName"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// TenantRef is the tenant summary embedded in leases and payments
type TenantRef struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"fullName"`
}

// ===========================
// LEASE & PAYMENT MODELS
// ===========================

// LeaseStatus is the lifecycle state of a lease
type LeaseStatus string

const (
	LeaseDraft      LeaseStatus = "DRAFT"
	LeasePending    LeaseStatus = "PENDING"
	LeaseActive     LeaseStatus = "ACTIVE"
	LeaseTerminated LeaseStatus = "TERMINATED"
	LeaseExpired    LeaseStatus = "EXPIRED"
)

// Lease binds a tenant to a unit for a period
type Lease struct {
	ID             string      `json:"id"`
	OrganizationID string      `json:"organizationId"`
	UnitID         string      `json:"unitId"`
	TenantID       string      `json:"tenantId,omitempty"`
	Status         LeaseStatus `json:"status"`
	StartDate      string      `json:"startDate"`
	EndDate        *string     `json:"endDate,omitempty"`
	RentAmount     int64       `json:"rentAmount,omitempty"` // cents
	Currency       string      `json:"currency,omitempty"`
	Tenant         *TenantRef  `json:"tenant,omitempty"`
}

// PaymentStatus is the settlement state of a payment
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPartial  PaymentStatus = "PARTIAL"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentOverdue  PaymentStatus = "OVERDUE"
	PaymentCanceled PaymentStatus = "CANCELED"
)

// Payment is a single rent charge
type Payment struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organizationId"`
	LeaseID        string        `json:"leaseId,omitempty"`
	Amount         int64         `json:"amount"` // cents
	Currency       string        `json:"currency,omitempty"`
	Status         PaymentStatus `json:"status"`
	DueDate        *string       `json:"dueDate,omitempty"`
	PaidAt         *string       `json:"paidAt,omitempty"`
	Tenant         *TenantRef    `json:"tenant,omitempty"`
}

// ===========================
// API ENVELOPES
// ===========================

// ListMeta describes a page of results
type ListMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// ListResponse is the envelope of every list endpoint
type ListResponse[T any] struct {
	Items []T      `json:"items"`
	Meta  ListMeta `json:"meta"`
}

// ErrorResponse is the envelope of every error response
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ===========================
// DATES
// ===========================

// DateLayout is the wire layout of calendar dates
const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// FormatDate renders t as a calendar date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
