package db

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record is in a conflicting state")
)

// Membership grants a user a role inside an organization
type Membership struct {
	OrganizationID string
	Role           string
}

// StoredUser is an account known to the stub API
type StoredUser struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Memberships  []Membership
}

// RoleIn returns the user's role in orgID, or "" when the user is not a member
func (u *StoredUser) RoleIn(orgID string) string {
	for _, m := range u.Memberships {
		if m.OrganizationID == orgID {
			return m.Role
		}
	}
	return ""
}

// ListQuery carries pagination, filters and ordering for list reads
type ListQuery struct {
	Page       int
	PageSize   int
	Filters    map[string]string
	SortField  string
	Descending bool
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

func (q ListQuery) filter(key string) (string, bool) {
	v, ok := q.Filters[key]
	return v, ok && v != ""
}

// MemoryStore is the in-memory dataset behind the stub API.
// It is safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*StoredUser
	organizations []Organization
	properties    []Property
	units         []Unit
	tenants       []Tenant
	leases        []Lease
	payments      []Payment
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*StoredUser)}
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// ============================================================================
// Writes
// ============================================================================

// AddUser stores an account and returns its ID
func (s *MemoryStore) AddUser(u StoredUser) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = newID(u.ID)
	s.users[u.ID] = &u
	return u.ID
}

// AddOrganization stores an organization and returns its ID
func (s *MemoryStore) AddOrganization(o Organization) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = newID(o.ID)
	s.organizations = append(s.organizations, o)
	return o.ID
}

// AddProperty stores a property and returns its ID
func (s *MemoryStore) AddProperty(p Property) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID(p.ID)
	s.properties = append(s.properties, p)
	return p.ID
}

// AddUnit stores a unit and returns its ID
func (s *MemoryStore) AddUnit(u Unit) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = newID(u.ID)
	s.units = append(s.units, u)
	return u.ID
}

// AddTenant stores a tenant and returns its ID
func (s *MemoryStore) AddTenant(t Tenant) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = newID(t.ID)
	s.tenants = append(s.tenants, t)
	return t.ID
}

// AddLease stores a lease and returns its ID
func (s *MemoryStore) AddLease(l Lease) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = newID(l.ID)
	s.leases = append(s.leases, l)
	return l.ID
}

// AddPayment stores a payment and returns its ID
func (s *MemoryStore) AddPayment(p Payment) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID(p.ID)
	s.payments = append(s.payments, p)
	return p.ID
}

// MarkPaymentPaid settles a payment. Already settled or canceled payments
// return ErrConflict.
func (s *MemoryStore) MarkPaymentPaid(orgID, id string, paidAt time.Time) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.payments {
		p := &s.payments[i]
		if p.ID != id || p.OrganizationID != orgID {
			continue
		}
		if p.Status == PaymentPaid || p.Status == PaymentCanceled {
			return nil, ErrConflict
		}
		paid := FormatDate(paidAt)
		p.Status = PaymentPaid
		p.PaidAt = &paid
		out := *p
		return &out, nil
	}
	return nil, ErrNotFound
}

// ============================================================================
// Users & organizations
// ============================================================================

// FindUserByEmail looks up an account by email (case-insensitive)
func (s *MemoryStore) FindUserByEmail(email string) (*StoredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// GetUser looks up an account by ID
func (s *MemoryStore) GetUser(id string) (*StoredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// OrganizationRefs returns the organizations the user belongs to, in membership order
func (s *MemoryStore) OrganizationRefs(u *StoredUser) []OrganizationRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]OrganizationRef, 0, len(u.Memberships))
	for _, m := range u.Memberships {
		for _, o := range s.organizations {
			if o.ID == m.OrganizationID {
				refs = append(refs, OrganizationRef{ID: o.ID, Code: o.Code, Name: o.Name, Role: m.Role})
			}
		}
	}
	return refs
}

// ListOrganizations lists the organizations among ids
func (s *MemoryStore) ListOrganizations(ids []string, q ListQuery) ListResponse[Organization] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	var out []Organization
	for _, o := range s.organizations {
		if allowed[o.ID] {
			out = append(out, o)
		}
	}
	return paginate(out, q)
}

// GetOrganization returns one organization
func (s *MemoryStore) GetOrganization(id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.organizations, id, func(o Organization) string { return o.ID })
}

// ============================================================================
// Organization-scoped reads
// ============================================================================

// ListProperties lists properties of an organization
func (s *MemoryStore) ListProperties(orgID string, q ListQuery) ListResponse[Property] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Property
	for _, p := range s.properties {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return paginate(out, q)
}

// GetProperty returns one property of an organization
func (s *MemoryStore) GetProperty(orgID, id string) (*Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := findByID(s.properties, id, func(p Property) string { return p.ID })
	return scoped(p, err, orgID, func(p *Property) string { return p.OrganizationID })
}

// ListUnits lists units of an organization, optionally filtered by propertyId
func (s *MemoryStore) ListUnits(orgID string, q ListQuery) ListResponse[Unit] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	propertyID, byProperty := q.filter("propertyId")
	var out []Unit
	for _, u := range s.units {
		if u.OrganizationID != orgID {
			continue
		}
		if byProperty && u.PropertyID != propertyID {
			continue
		}
		out = append(out, u)
	}
	return paginate(out, q)
}

// GetUnit returns one unit of an organization
func (s *MemoryStore) GetUnit(orgID, id string) (*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, err := findByID(s.units, id, func(u Unit) string { return u.ID })
	return scoped(u, err, orgID, func(u *Unit) string { return u.OrganizationID })
}

// ListTenants lists tenants of an organization
func (s *MemoryStore) ListTenants(orgID string, q ListQuery) ListResponse[Tenant] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tenant
	for _, t := range s.tenants {
		if t.OrganizationID == orgID {
			out = append(out, t)
		}
	}
	return paginate(out, q)
}

// GetTenant returns one tenant of an organization
func (s *MemoryStore) GetTenant(orgID, id string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := findByID(s.tenants, id, func(t Tenant) string { return t.ID })
	return scoped(t, err, orgID, func(t *Tenant) string { return t.OrganizationID })
}

// ListLeases lists leases of an organization. Supports unitId and status
// filters and sorting by startDate.
func (s *MemoryStore) ListLeases(orgID string, q ListQuery) ListResponse[Lease] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unitID, byUnit := q.filter("unitId")
	status, byStatus := q.filter("status")
	var out []Lease
	for _, l := range s.leases {
		if l.OrganizationID != orgID {
			continue
		}
		if byUnit && l.UnitID != unitID {
			continue
		}
		if byStatus && !strings.EqualFold(string(l.Status), status) {
			continue
		}
		out = append(out, l)
	}
	if q.SortField == "startDate" {
		sortByDate(out, func(l Lease) string { return l.StartDate }, q.Descending)
	}
	return paginate(out, q)
}

// GetLease returns one lease of an organization
func (s *MemoryStore) GetLease(orgID, id string) (*Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, err := findByID(s.leases, id, func(l Lease) string { return l.ID })
	return scoped(l, err, orgID, func(l *Lease) string { return l.OrganizationID })
}

// ListPayments lists payments of an organization. Supports status and leaseId
// filters and sorting by dueDate.
func (s *MemoryStore) ListPayments(orgID string, q ListQuery) ListResponse[Payment] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, byStatus := q.filter("status")
	leaseID, byLease := q.filter("leaseId")
	var out []Payment
	for _, p := range s.payments {
		if p.OrganizationID != orgID {
			continue
		}
		if byStatus && !strings.EqualFold(string(p.Status), status) {
			continue
		}
		if byLease && p.LeaseID != leaseID {
			continue
		}
		out = append(out, p)
	}
	if q.SortField == "dueDate" {
		sortByDate(out, func(p Payment) string {
			if p.DueDate == nil {
				return ""
			}
			return *p.DueDate
		}, q.Descending)
	}
	return paginate(out, q)
}

// GetPayment returns one payment of an organization
func (s *MemoryStore) GetPayment(orgID, id string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := findByID(s.payments, id, func(p Payment) string { return p.ID })
	return scoped(p, err, orgID, func(p *Payment) string { return p.OrganizationID })
}

// ============================================================================
// Helpers
// ============================================================================

func paginate[T any](items []T, q ListQuery) ListResponse[T] {
	q = q.normalized()
	total := len(items)
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	page := make([]T, end-start)
	copy(page, items[start:end])
	return ListResponse[T]{
		Items: page,
		Meta:  ListMeta{Total: total, Page: q.Page, PageSize: q.PageSize},
	}
}

func findByID[T any](items []T, id string, idOf func(T) string) (*T, error) {
	for _, item := range items {
		if idOf(item) == id {
			out := item
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// scoped hides records of other organizations behind ErrNotFound
func scoped[T any](rec *T, err error, orgID string, orgOf func(*T) string) (*T, error) {
	if err != nil {
		return nil, err
	}
	if orgOf(rec) != orgID {
		return nil, ErrNotFound
	}
	return rec, nil
}

// sortByDate orders items by a date field; unparseable or missing dates go last.
func sortByDate[T any](items []T, field func(T) string, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, erri := ParseDate(field(items[i]))
		tj, errj := ParseDate(field(items[j]))
		switch {
		case erri != nil && errj != nil:
			return false
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		if desc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
}

// ============================================================================
// Reconciliation
// ============================================================================

// ReconcileStats counts the records moved by Reconcile
type ReconcileStats struct {
	PaymentsOverdue int
	LeasesActivated int
	LeasesExpired   int
}

// Changed reports whether any record was updated
func (r ReconcileStats) Changed() bool {
	return r.PaymentsOverdue+r.LeasesActivated+r.LeasesExpired > 0
}

// Reconcile moves records whose dates have passed: pending payments past their
// due date become OVERDUE, pending leases that have started become ACTIVE and
// active leases past their end date become EXPIRED. Records with unparseable
// dates are left alone.
func (s *MemoryStore) Reconcile(now time.Time) ReconcileStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := FormatDate(now)
	var stats ReconcileStats

	for i := range s.payments {
		p := &s.payments[i]
		if p.Status != PaymentPending || p.DueDate == nil {
			continue
		}
		if before(*p.DueDate, today) {
			p.Status = PaymentOverdue
			stats.PaymentsOverdue++
		}
	}

	for i := range s.leases {
		l := &s.leases[i]
		switch l.Status {
		case LeasePending:
			if _, err := ParseDate(l.StartDate); err == nil && !before(today, l.StartDate) {
				l.Status = LeaseActive
				stats.LeasesActivated++
			}
		case LeaseActive:
			if l.EndDate != nil && before(*l.EndDate, today) {
				l.Status = LeaseExpired
				stats.LeasesExpired++
			}
		}
	}
	return stats
}

// before reports whether calendar date a is strictly before b
func before(a, b string) bool {
	ta, errA := ParseDate(a)
	tb, errB := ParseDate(b)
	if errA != nil || errB != nil {
		return false
	}
	return FormatDate(ta) < FormatDate(tb)
}
