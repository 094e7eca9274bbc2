package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/phonginreallife/rentdesk/apperrors"
	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/db"
	"go.uber.org/zap"
)

const (
	RouteHome  = "/"
	RouteLogin = "/login"
)

// Authenticator exchanges credentials for a token and user record
type Authenticator interface {
	Login(ctx context.Context, req db.LoginRequest) (*db.LoginResponse, error)
}

type LoginResult struct {
	Success    bool
	RedirectTo string
	Session    *db.SessionPayload
}

type CheckResult struct {
	Authenticated bool
	RedirectTo    string
	Logout        bool
}

type UnauthorizedResult struct {
	ShouldLogout bool
	RedirectTo   string
}

type LogoutResult struct {
	Success    bool
	RedirectTo string
}

// Identity is the display projection of the signed-in user
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Principal is a loaded session with its role resolved
type Principal struct {
	Session        *db.SessionPayload
	UserID         string
	OrganizationID string
	Role           authz.Role
}

// Can checks the principal's role against the permission engine
func (p *Principal) Can(resource authz.Resource, action authz.Action) authz.Decision {
	if p == nil {
		return authz.Can(authz.RoleUnknown, resource, action)
	}
	return authz.Can(p.Role, resource, action)
}

// AuthLifecycle binds the session store to login, logout and the handling of
// rejected requests.
type AuthLifecycle struct {
	sessions *SessionStore
	auth     Authenticator
	logger   *zap.Logger
}

func NewAuthLifecycle(sessions *SessionStore, auth Authenticator, logger *zap.Logger) *AuthLifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthLifecycle{
		sessions: sessions,
		auth:     auth,
		logger:   logger,
	}
}

// SetAuthenticator replaces the credential exchange. The client and the
// lifecycle reference each other, so one side is wired after construction.
func (l *AuthLifecycle) SetAuthenticator(auth Authenticator) { l.auth = auth }

// Login authenticates and persists a new session. Nothing is persisted on
// failure; the error is always an *apperrors.Error.
func (l *AuthLifecycle) Login(ctx context.Context, creds db.LoginRequest) (LoginResult, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return LoginResult{}, apperrors.New(apperrors.KindValidation, "email and password are required")
	}
	if l.auth == nil {
		return LoginResult{}, apperrors.New(apperrors.KindUnknown, "no authenticator configured")
	}

	resp, err := l.auth.Login(ctx, creds)
	if err != nil {
		l.logger.Info("LOGIN FAILED", zap.String("email", creds.Email), zap.Error(err))
		return LoginResult{}, loginError(err)
	}
	if resp == nil || strings.TrimSpace(resp.AccessToken) == "" || resp.User.ID == "" {
		return LoginResult{}, apperrors.New(apperrors.KindAuthentication, "login response did not contain a session")
	}
	if len(resp.User.Organizations) == 0 {
		return LoginResult{}, apperrors.New(apperrors.KindAuthentication, "account has no organizations")
	}

	org := resp.User.Organizations[0]
	if creds.OrganizationCode != "" {
		if match, ok := resp.User.FindOrganizationByCode(creds.OrganizationCode); ok {
			org = match
		}
	}

	payload := &db.SessionPayload{
		Token:                  resp.AccessToken,
		ActiveOrganizationID:   org.ID,
		ActiveOrganizationCode: org.Code,
		User:                   resp.User,
	}
	if err := l.sessions.Save(ctx, payload); err != nil {
		return LoginResult{}, apperrors.Wrap(apperrors.KindUnknown, "failed to persist session", err)
	}

	l.logger.Info("LOGIN SUCCESS",
		zap.String("user_id", payload.User.ID),
		zap.String("org_id", payload.ActiveOrganizationID),
	)
	return LoginResult{Success: true, RedirectTo: RouteHome, Session: payload}, nil
}

func loginError(err error) *apperrors.Error {
	switch apperrors.KindOf(err) {
	case apperrors.KindAuthentication, apperrors.KindAuthorization:
		return apperrors.Wrap(apperrors.KindAuthentication, "invalid email or password", err)
	case apperrors.KindNetwork:
		return apperrors.Wrap(apperrors.KindNetwork, "unable to reach the server", err)
	case apperrors.KindValidation:
		return apperrors.Wrap(apperrors.KindValidation, "login request was rejected", err)
	default:
		return apperrors.Wrap(apperrors.KindUnknown, "login failed", err)
	}
}

// Check reports whether a valid session exists. Unauthenticated results carry
// a redirect to the login route and ask the caller to drop stale state.
func (l *AuthLifecycle) Check(ctx context.Context) CheckResult {
	payload, err := l.sessions.Load(ctx)
	if err != nil {
		l.logger.Warn("session check failed", zap.Error(err))
	}
	if err != nil || !payload.Authenticated() {
		return CheckResult{Authenticated: false, RedirectTo: RouteLogin, Logout: true}
	}
	return CheckResult{Authenticated: true}
}

// OnUnauthorizedResponse reacts to a rejected request. Only 401 ends the
// session; 403 means the session is valid but the role is insufficient.
func (l *AuthLifecycle) OnUnauthorizedResponse(ctx context.Context, status int) UnauthorizedResult {
	if status != http.StatusUnauthorized {
		return UnauthorizedResult{}
	}
	if err := l.sessions.Clear(ctx); err != nil {
		l.logger.Error("failed to clear session after 401", zap.Error(err))
	}
	l.logger.Info("SESSION REJECTED - forcing logout")
	return UnauthorizedResult{ShouldLogout: true, RedirectTo: RouteLogin}
}

// Logout clears the session. It never fails.
func (l *AuthLifecycle) Logout(ctx context.Context) LogoutResult {
	if err := l.sessions.Clear(ctx); err != nil {
		l.logger.Error("failed to clear session on logout", zap.Error(err))
	}
	return LogoutResult{Success: true, RedirectTo: RouteLogin}
}

// GetPermissions returns the user's roles, or nil when anonymous
func (l *AuthLifecycle) GetPermissions(ctx context.Context) []string {
	p := l.Principal(ctx)
	if p == nil {
		return nil
	}
	u := p.Session.User
	if len(u.Roles) > 0 {
		return append([]string(nil), u.Roles...)
	}
	if u.Role != "" {
		return []string{u.Role}
	}
	return []string{}
}

// GetIdentity returns the signed-in user, or nil when anonymous
func (l *AuthLifecycle) GetIdentity(ctx context.Context) *Identity {
	p := l.Principal(ctx)
	if p == nil {
		return nil
	}
	u := p.Session.User
	name := strings.TrimSpace(u.FullName)
	if name == "" {
		name = u.Email
	}
	return &Identity{ID: u.ID, Email: u.Email, DisplayName: name}
}

// Principal loads the session and resolves its role once. The role is
// user.role, else the first entry of user.roles. One extension applies: when
// the active organization's membership entry carries a role, that role wins,
// so switching organizations changes the effective role. Payloads without
// membership roles resolve from the user fields alone.
func (l *AuthLifecycle) Principal(ctx context.Context) *Principal {
	payload, err := l.sessions.Load(ctx)
	if err != nil || !payload.Authenticated() {
		return nil
	}
	role := authz.ResolveRole(payload.User.Role, payload.User.Roles)
	if org, ok := payload.User.FindOrganization(payload.ActiveOrganizationID); ok && org.Role != "" {
		role = authz.ParseRole(org.Role)
	}
	return &Principal{
		Session:        payload,
		UserID:         payload.User.ID,
		OrganizationID: payload.ActiveOrganizationID,
		Role:           role,
	}
}

// SwitchOrganization changes the active organization. A successful switch
// sets ReloadRequired: every organization-scoped cache must be dropped.
func (l *AuthLifecycle) SwitchOrganization(ctx context.Context, orgID, orgCode string) (SwitchResult, error) {
	return l.sessions.SwitchOrganization(ctx, orgID, orgCode)
}
