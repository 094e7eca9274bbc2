package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/phonginreallife/rentdesk/apperrors"
	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/db"
	"github.com/phonginreallife/rentdesk/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAuthenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, req db.LoginRequest) (*db.LoginResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*db.LoginResponse)
	return resp, args.Error(1)
}

func newLifecycle(auth Authenticator) (*AuthLifecycle, *SessionStore, *store.MemoryKV) {
	kv := store.NewMemoryKV()
	sessions := NewSessionStore(kv, "", zap.NewNop())
	return NewAuthLifecycle(sessions, auth, zap.NewNop()), sessions, kv
}

func loginResponse() *db.LoginResponse {
	p := samplePayload()
	return &db.LoginResponse{AccessToken: p.Token, User: p.User}
}

func TestAuthLifecycle_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to first organization", func(t *testing.T) {
		auth := new(MockAuthenticator)
		creds := db.LoginRequest{Email: "owner@acme.test", Password: "pw"}
		auth.On("Login", mock.Anything, creds).Return(loginResponse(), nil)

		l, sessions, _ := newLifecycle(auth)
		res, err := l.Login(ctx, creds)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, RouteHome, res.RedirectTo)

		stored, err := sessions.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "org-a", stored.ActiveOrganizationID)
		assert.Equal(t, "ACME", stored.ActiveOrganizationCode)
		auth.AssertExpectations(t)
	})

	t.Run("organization code selects membership", func(t *testing.T) {
		auth := new(MockAuthenticator)
		creds := db.LoginRequest{Email: "owner@acme.test", Password: "pw", OrganizationCode: "harbor"}
		auth.On("Login", mock.Anything, creds).Return(loginResponse(), nil)

		l, sessions, _ := newLifecycle(auth)
		_, err := l.Login(ctx, creds)
		require.NoError(t, err)

		stored, err := sessions.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "org-b", stored.ActiveOrganizationID)
	})

	t.Run("unknown organization code falls back to first", func(t *testing.T) {
		auth := new(MockAuthenticator)
		creds := db.LoginRequest{Email: "owner@acme.test", Password: "pw", OrganizationCode: "NOPE"}
		auth.On("Login", mock.Anything, creds).Return(loginResponse(), nil)

		l, _, _ := newLifecycle(auth)
		res, err := l.Login(ctx, creds)
		require.NoError(t, err)
		assert.Equal(t, "org-a", res.Session.ActiveOrganizationID)
	})
}

func TestAuthLifecycle_LoginFailures(t *testing.T) {
	ctx := context.Background()
	creds := db.LoginRequest{Email: "owner@acme.test", Password: "wrong"}

	noOrgs := loginResponse()
	noOrgs.User.Organizations = nil

	tests := []struct {
		name string
		resp *db.LoginResponse
		err  error
		kind apperrors.Kind
	}{
		{"rejected credentials", nil, apperrors.New(apperrors.KindAuthentication, "Invalid credentials"), apperrors.KindAuthentication},
		{"network failure", nil, apperrors.Wrap(apperrors.KindNetwork, "dial", errors.New("connection refused")), apperrors.KindNetwork},
		{"unexpected failure", nil, errors.New("boom"), apperrors.KindUnknown},
		{"empty token", &db.LoginResponse{User: db.SessionUser{ID: "u"}}, nil, apperrors.KindAuthentication},
		{"no organizations", noOrgs, nil, apperrors.KindAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(MockAuthenticator)
			auth.On("Login", mock.Anything, creds).Return(tt.resp, tt.err)

			l, _, kv := newLifecycle(auth)
			_, err := l.Login(ctx, creds)
			require.Error(t, err)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.NotEmpty(t, appErr.Message)

			_, getErr := kv.Get(ctx, "rentdesk:session")
			assert.ErrorIs(t, getErr, store.ErrMiss, "nothing may be persisted on failure")
			assert.False(t, l.Check(ctx).Authenticated)
		})
	}
}

func TestAuthLifecycle_LoginValidation(t *testing.T) {
	auth := new(MockAuthenticator)
	l, _, _ := newLifecycle(auth)

	_, err := l.Login(context.Background(), db.LoginRequest{Email: " "})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestAuthLifecycle_Check(t *testing.T) {
	ctx := context.Background()
	l, sessions, kv := newLifecycle(nil)

	res := l.Check(ctx)
	assert.False(t, res.Authenticated)
	assert.Equal(t, RouteLogin, res.RedirectTo)
	assert.True(t, res.Logout)

	require.NoError(t, sessions.Save(ctx, samplePayload()))
	res = l.Check(ctx)
	assert.True(t, res.Authenticated)
	assert.Empty(t, res.RedirectTo)

	require.NoError(t, kv.Set(ctx, sessions.Key(), "garbage", 0))
	res = l.Check(ctx)
	assert.False(t, res.Authenticated)
	assert.True(t, res.Logout)
}

func TestAuthLifecycle_OnUnauthorizedResponse(t *testing.T) {
	ctx := context.Background()
	l, sessions, _ := newLifecycle(nil)
	require.NoError(t, sessions.Save(ctx, samplePayload()))

	res := l.OnUnauthorizedResponse(ctx, http.StatusForbidden)
	assert.False(t, res.ShouldLogout)
	assert.Empty(t, res.RedirectTo)
	stored, err := sessions.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, stored, "403 must preserve the session")

	res = l.OnUnauthorizedResponse(ctx, http.StatusInternalServerError)
	assert.False(t, res.ShouldLogout)

	res = l.OnUnauthorizedResponse(ctx, http.StatusUnauthorized)
	assert.True(t, res.ShouldLogout)
	assert.Equal(t, RouteLogin, res.RedirectTo)
	stored, err = sessions.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAuthLifecycle_Logout(t *testing.T) {
	ctx := context.Background()
	l, sessions, _ := newLifecycle(nil)

	assert.Equal(t, LogoutResult{Success: true, RedirectTo: RouteLogin}, l.Logout(ctx))

	require.NoError(t, sessions.Save(ctx, samplePayload()))
	assert.True(t, l.Logout(ctx).Success)
	assert.False(t, l.Check(ctx).Authenticated)
}

func TestAuthLifecycle_Projections(t *testing.T) {
	ctx := context.Background()
	l, sessions, _ := newLifecycle(nil)

	assert.Nil(t, l.GetPermissions(ctx))
	assert.Nil(t, l.GetIdentity(ctx))
	assert.Nil(t, l.Principal(ctx))

	p := samplePayload()
	require.NoError(t, sessions.Save(ctx, p))

	assert.Equal(t, []string{"OWNER"}, l.GetPermissions(ctx))
	assert.Equal(t, &Identity{ID: "user-1", Email: "owner@acme.test", DisplayName: "Olivia Owner"}, l.GetIdentity(ctx))

	p.User.FullName = ""
	p.User.Roles = nil
	require.NoError(t, sessions.Save(ctx, p))
	assert.Equal(t, "owner@acme.test", l.GetIdentity(ctx).DisplayName)
	assert.Equal(t, []string{"OWNER"}, l.GetPermissions(ctx))
}

func TestAuthLifecycle_Principal(t *testing.T) {
	ctx := context.Background()
	l, sessions, _ := newLifecycle(nil)

	p := samplePayload()
	p.User.Role = "owner"
	p.User.Organizations[1].Role = "viewer"
	require.NoError(t, sessions.Save(ctx, p))

	principal := l.Principal(ctx)
	require.NotNil(t, principal)
	assert.Equal(t, authz.RoleOwner, principal.Role)
	assert.True(t, principal.Can(authz.ResourcePayments, authz.ActionEdit).Allowed)

	res, err := l.SwitchOrganization(ctx, "org-b", "")
	require.NoError(t, err)
	assert.True(t, res.ReloadRequired)

	principal = l.Principal(ctx)
	assert.Equal(t, authz.RoleViewer, principal.Role)
	assert.False(t, principal.Can(authz.ResourcePayments, authz.ActionEdit).Allowed)

	var anonymous *Principal
	assert.False(t, anonymous.Can(authz.ResourceUnits, authz.ActionList).Allowed)
}

func TestAuthLifecycle_PrincipalWithoutMembershipRoles(t *testing.T) {
	ctx := context.Background()
	l, sessions, _ := newLifecycle(nil)

	tests := []struct {
		name  string
		role  string
		roles []string
		want  authz.Role
	}{
		{"role field", "staff", []string{"ADMIN"}, authz.RoleStaff},
		{"first of roles", "", []string{"operator", "OWNER"}, authz.RoleOperator},
		{"blank role falls through", "  ", []string{"viewer"}, authz.RoleViewer},
		{"nothing", "", nil, authz.RoleUnknown},
		{"unrecognized", "landlord", nil, authz.RoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePayload()
			p.User.Role = tt.role
			p.User.Roles = tt.roles
			require.NoError(t, sessions.Save(ctx, p))

			principal := l.Principal(ctx)
			require.NotNil(t, principal)
			assert.Equal(t, tt.want, principal.Role)

			// switching keeps the user-level role when memberships carry none
			_, err := l.SwitchOrganization(ctx, "org-b", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Principal(ctx).Role)
		})
	}
}
