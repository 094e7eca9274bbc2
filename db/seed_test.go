package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedDemoData(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	require.NoError(t, SeedDemoData(s, now, bcrypt.MinCost))

	for email, role := range DemoAccounts {
		u, err := s.FindUserByEmail(email)
		require.NoError(t, err, email)
		assert.Equal(t, role, u.RoleIn(DemoOrgAcme), email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(DemoPassword)))
	}

	owner, err := s.FindUserByEmail("owner@acme.test")
	require.NoError(t, err)
	refs := s.OrganizationRefs(owner)
	require.Len(t, refs, 2)
	assert.Equal(t, OrganizationRef{ID: DemoOrgAcme, Code: "ACME", Name: "Acme Property Management", Role: "OWNER"}, refs[0])
	assert.Equal(t, "VIEWER", refs[1].Role)

	assert.Equal(t, 4, s.ListUnits(DemoOrgAcme, ListQuery{}).Meta.Total)
	assert.Equal(t, 0, s.ListUnits(DemoOrgHarbor, ListQuery{}).Meta.Total)
	assert.Equal(t, 1, s.ListProperties(DemoOrgHarbor, ListQuery{}).Meta.Total)

	leases := s.ListLeases(DemoOrgAcme, ListQuery{})
	require.Len(t, leases.Items, 3)
	statuses := map[LeaseStatus]int{}
	for _, l := range leases.Items {
		statuses[l.Status]++
	}
	assert.Equal(t, map[LeaseStatus]int{LeaseActive: 1, LeasePending: 1, LeaseExpired: 1}, statuses)

	payments := s.ListPayments(DemoOrgAcme, ListQuery{SortField: "dueDate"})
	require.Len(t, payments.Items, 8)
	assert.Equal(t, "2026-01-14", *payments.Items[0].DueDate)
	assert.Equal(t, "2026-03-20", *payments.Items[7].DueDate)
}

func TestSessionPayload_Validate(t *testing.T) {
	valid := SessionPayload{Token: "tok", ActiveOrganizationID: "org", User: SessionUser{ID: "u"}}

	tests := []struct {
		name    string
		mutate  func(p *SessionPayload)
		wantErr string
	}{
		{"valid", func(*SessionPayload) {}, ""},
		{"blank token", func(p *SessionPayload) { p.Token = "  " }, "token"},
		{"no organization", func(p *SessionPayload) { p.ActiveOrganizationID = "" }, "organization"},
		{"no user", func(p *SessionPayload) { p.User.ID = "" }, "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				assert.True(t, p.Authenticated())
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var nilPayload *SessionPayload
	assert.Error(t, nilPayload.Validate())
	assert.False(t, nilPayload.Authenticated())
}

func TestSessionPayload_JSONKeepsEmptyLists(t *testing.T) {
	tests := []struct {
		name string
		user SessionUser
	}{
		{"empty lists", SessionUser{ID: "u", Roles: []string{}, Organizations: []OrganizationRef{}}},
		{"absent lists", SessionUser{ID: "u"}},
		{"filled lists", SessionUser{ID: "u", Roles: []string{"STAFF"}, Organizations: []OrganizationRef{{ID: "org"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := SessionPayload{Token: "tok", ActiveOrganizationID: "org", User: tt.user}
			data, err := json.Marshal(in)
			require.NoError(t, err)

			var out SessionPayload
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestSessionUser_FindOrganizationByCode(t *testing.T) {
	u := SessionUser{Organizations: []OrganizationRef{
		{ID: "a", Name: "No code"},
		{ID: "b", Code: "HARBOR", Name: "Harbor"},
	}}

	org, ok := u.FindOrganizationByCode("harbor")
	require.True(t, ok)
	assert.Equal(t, "b", org.ID)

	_, ok = u.FindOrganizationByCode("")
	assert.False(t, ok)

	_, ok = u.FindOrganization("c")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-03-15 ")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", FormatDate(d))

	d, err = ParseDate("2026-03-15T23:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", FormatDate(d))

	_, err = ParseDate("15/03/2026")
	assert.Error(t, err)
}
