package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/db"
	"github.com/phonginreallife/rentdesk/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HeaderOrganizationID selects the organization a request is scoped to
const HeaderOrganizationID = "X-Organization-Id"

type AuthHandler struct {
	Store  *db.MemoryStore
	Tokens *services.TokenService
	logger *zap.Logger
}

func NewAuthHandler(store *db.MemoryStore, tokens *services.TokenService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{Store: store, Tokens: tokens, logger: logger}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req db.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "email and password are required", nil)
		return
	}

	user, err := h.Store.FindUserByEmail(req.Email)
	if err != nil {
		// Burn a comparison so unknown emails cost the same as bad passwords
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		h.logger.Info("LOGIN DENIED - unknown email", zap.String("email", req.Email))
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.Info("LOGIN DENIED - bad password", zap.String("user_id", user.ID))
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return
	}

	orgs := h.Store.OrganizationRefs(user)
	if len(orgs) == 0 {
		respondError(c, http.StatusUnauthorized, "NO_ORGANIZATION", "Account has no organizations", nil)
		return
	}
	active := orgs[0]
	if req.OrganizationCode != "" {
		sessionUser := db.SessionUser{Organizations: orgs}
		if match, ok := sessionUser.FindOrganizationByCode(req.OrganizationCode); ok {
			active = match
		}
	}

	token, err := h.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", "Failed to issue token", nil)
		return
	}

	h.logger.Info("LOGIN SUCCESS",
		zap.String("user_id", user.ID),
		zap.String("org_id", active.ID),
	)
	c.JSON(http.StatusOK, db.LoginResponse{
		AccessToken: token,
		User: db.SessionUser{
			ID:            user.ID,
			Email:         user.Email,
			FullName:      user.FullName,
			Role:          active.Role,
			Roles:         []string{active.Role},
			Organizations: orgs,
		},
	})
}

// dummyHash is compared against when the email is unknown
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rentdesk-dummy"), bcrypt.MinCost)

// RequireAuth validates the bearer token and resolves the organization scope.
// The scope comes from X-Organization-Id and defaults to the first membership.
func (h *AuthHandler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := services.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
			c.Abort()
			return
		}

		claims, err := h.Tokens.Validate(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token: "+err.Error(), nil)
			c.Abort()
			return
		}

		user, err := h.Store.GetUser(claims.Subject)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "User no longer exists", nil)
			c.Abort()
			return
		}

		orgID := c.GetHeader(HeaderOrganizationID)
		if orgID == "" && len(user.Memberships) > 0 {
			orgID = user.Memberships[0].OrganizationID
		}
		role := user.RoleIn(orgID)
		if role == "" {
			h.logger.Info("AUTHZ DENIED - not a member",
				zap.String("user_id", user.ID),
				zap.String("org_id", orgID),
			)
			respondError(c, http.StatusForbidden, "FORBIDDEN", "Not a member of this organization",
				map[string]any{"organizationId": orgID})
			c.Abort()
			return
		}

		c.Set(string(authz.ContextKeyUserID), user.ID)
		c.Set(string(authz.ContextKeyOrgID), orgID)
		c.Set(string(authz.ContextKeyRole), role)
		c.Set("user_email", user.Email)
		c.Set("memberships", membershipIDs(user))
		c.Next()
	}
}

func membershipIDs(u *db.StoredUser) []string {
	ids := make([]string, 0, len(u.Memberships))
	for _, m := range u.Memberships {
		ids = append(ids, m.OrganizationID)
	}
	return ids
}

func respondError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, db.ErrorResponse{Code: code, Message: message, Details: details})
}

// respondStoreError maps store sentinel errors onto HTTP responses
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Record not found", nil)
	case errors.Is(err, db.ErrConflict):
		respondError(c, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
