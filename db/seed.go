package db

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Demo dataset identifiers
// These are stable so console sessions survive a stub API restart
const (
	// DemoOrgAcme is the primary demo organization
	DemoOrgAcme = "00000000-0000-0000-0000-00000000a001"

	// DemoOrgHarbor is a second organization used to exercise organization switching
	DemoOrgHarbor = "00000000-0000-0000-0000-00000000a002"

	// DemoPassword is shared by every demo account
	DemoPassword = "demo1234"
)

// DemoAccounts maps demo emails to their role in DemoOrgAcme
var DemoAccounts = map[string]string{
	"owner@acme.test":    "OWNER",
	"admin@acme.test":    "ADMIN",
	"operator@acme.test": "OPERATOR",
	"staff@acme.test":    "STAFF",
	"viewer@acme.test":   "VIEWER",
}

// SeedDemoData fills store with a small portfolio whose dates are relative to
// now, so every payment risk level and occupancy state is represented.
func SeedDemoData(store *MemoryStore, now time.Time, cost int) error {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	store.AddOrganization(Organization{ID: DemoOrgAcme, Code: "ACME", Name: "Acme Property Management", CreatedAt: now.AddDate(-2, 0, 0)})
	store.AddOrganization(Organization{ID: DemoOrgHarbor, Code: "HARBOR", Name: "Harbor Homes", CreatedAt: now.AddDate(-1, 0, 0)})

	for email, role := range DemoAccounts {
		memberships := []Membership{{OrganizationID: DemoOrgAcme, Role: role}}
		if role == "OWNER" {
			memberships = append(memberships, Membership{OrganizationID: DemoOrgHarbor, Role: "VIEWER"})
		}
		store.AddUser(StoredUser{
			Email:        email,
			FullName:     fmt.Sprintf("Demo %s", role),
			PasswordHash: string(hash),
			Memberships:  memberships,
		})
	}

	day := func(offset int) string { return FormatDate(now.AddDate(0, 0, offset)) }
	ptr := func(s string) *string { return &s }

	tower := store.AddProperty(Property{OrganizationID: DemoOrgAcme, Name: "Riverside Tower", Address: "12 River Rd", CreatedAt: now.AddDate(-2, 0, 0)})
	store.AddProperty(Property{OrganizationID: DemoOrgHarbor, Name: "Pier Lofts", Address: "1 Harbor Way", CreatedAt: now.AddDate(-1, 0, 0)})

	u101 := store.AddUnit(Unit{OrganizationID: DemoOrgAcme, PropertyID: tower, Name: "101", Floor: 1, Bedrooms: 2, AreaSqm: 68})
	u102 := store.AddUnit(Unit{OrganizationID: DemoOrgAcme, PropertyID: tower, Name: "102", Floor: 1, Bedrooms: 1, AreaSqm: 45})
	u201 := store.AddUnit(Unit{OrganizationID: DemoOrgAcme, PropertyID: tower, Name: "201", Floor: 2, Bedrooms: 3, AreaSqm: 92})
	store.AddUnit(Unit{OrganizationID: DemoOrgAcme, PropertyID: tower, Name: "202", Floor: 2, Bedrooms: 2, AreaSqm: 70})

	alice := Tenant{OrganizationID: DemoOrgAcme, FullName: "Alice Moreau", Email: "alice@example.test"}
	alice.ID = store.AddTenant(alice)
	bruno := Tenant{OrganizationID: DemoOrgAcme, FullName: "Bruno Silva", Email: "bruno@example.test"}
	bruno.ID = store.AddTenant(bruno)
	chen := Tenant{OrganizationID: DemoOrgAcme, FullName: "Chen Wei", Email: "chen@example.test"}
	chen.ID = store.AddTenant(chen)

	active := store.AddLease(Lease{
		OrganizationID: DemoOrgAcme, UnitID: u101, TenantID: alice.ID, Status: LeaseActive,
		StartDate: day(-200), EndDate: ptr(day(165)), RentAmount: 145000, Currency: "USD",
		Tenant: &TenantRef{ID: alice.ID, FullName: alice.FullName},
	})
	store.AddLease(Lease{
		OrganizationID: DemoOrgAcme, UnitID: u102, TenantID: bruno.ID, Status: LeasePending,
		StartDate: day(10), EndDate: ptr(day(375)), RentAmount: 98000, Currency: "USD",
		Tenant: &TenantRef{ID: bruno.ID, FullName: bruno.FullName},
	})
	store.AddLease(Lease{
		OrganizationID: DemoOrgAcme, UnitID: u201, TenantID: chen.ID, Status: LeaseExpired,
		StartDate: day(-400), EndDate: ptr(day(-35)), RentAmount: 182000, Currency: "USD",
		Tenant: &TenantRef{ID: chen.ID, FullName: chen.FullName},
	})

	payments := []Payment{
		{Status: PaymentPaid, DueDate: ptr(day(-30)), PaidAt: ptr(day(-31))},
		{Status: PaymentOverdue, DueDate: ptr(day(-3))},
		{Status: PaymentPending, DueDate: ptr(day(-2))},
		{Status: PaymentPending, DueDate: ptr(day(0))},
		{Status: PaymentPending, DueDate: ptr(day(2))},
		{Status: PaymentPending, DueDate: ptr(day(5))},
		{Status: PaymentPartial, DueDate: ptr(day(-10))},
		{Status: PaymentCanceled, DueDate: ptr(day(-60))},
	}
	for _, p := range payments {
		p.OrganizationID = DemoOrgAcme
		p.LeaseID = active
		p.Amount = 145000
		p.Currency = "USD"
		p.Tenant = &TenantRef{ID: alice.ID, FullName: alice.FullName}
		store.AddPayment(p)
	}

	return nil
}
