package authz

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextKey is the type for context keys to avoid collisions
type ContextKey string

const (
	// Context keys for storing authorization data
	ContextKeyUserID ContextKey = "user_id"
	ContextKeyOrgID  ContextKey = "org_id"
	ContextKeyRole   ContextKey = "org_role"
)

// AuthzMiddleware gates gin routes with the permission engine.
// It expects an upstream authentication middleware to have stored the user ID,
// the active organization and the role in the gin context.
type AuthzMiddleware struct {
	logger *zap.Logger
}

// NewAuthzMiddleware creates a new authorization middleware
func NewAuthzMiddleware(logger *zap.Logger) *AuthzMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthzMiddleware{logger: logger}
}

// RequirePermission ensures the caller's role allows action on resource.
// Usage: router.POST("/payments/:id/mark-paid", m.RequirePermission(authz.ResourcePayments, authz.ActionEdit), handler)
func (m *AuthzMiddleware) RequirePermission(resource Resource, action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.check(c, resource, action)
	}
}

// AutoDetectAction derives the action from the HTTP method and the presence of
// an :id path parameter, then checks it against resource.
// Usage: group.Use(m.AutoDetectAction(authz.ResourceUnits))
func (m *AuthzMiddleware) AutoDetectAction(resource Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		action := MethodToAction(c.Request.Method, c.Param("id") != "")
		m.check(c, resource, action)
	}
}

func (m *AuthzMiddleware) check(c *gin.Context, resource Resource, action Action) {
	userID := c.GetString(string(ContextKeyUserID))
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "User not authenticated",
		})
		return
	}

	role := GetRoleFromContext(c)
	decision := Can(role, resource, action)
	if !decision.Allowed {
		m.logger.Info("AUTHZ DENIED",
			zap.String("user_id", userID),
			zap.String("role", string(role)),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
			zap.String("reason", decision.Reason),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    "FORBIDDEN",
			"message": decision.Reason,
			"details": map[string]string{
				"action":   string(action),
				"resource": string(resource),
			},
		})
		return
	}

	c.Next()
}

// MethodToAction maps HTTP methods to authorization actions. itemScoped tells a
// detail read (show) apart from a collection read (list).
func MethodToAction(method string, itemScoped bool) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		if itemScoped {
			return ActionShow
		}
		return ActionList
	case http.MethodPost:
		if itemScoped {
			return ActionEdit
		}
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionEdit
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionShow
	}
}

// GetOrgIDFromContext retrieves the active organization ID from Gin context
func GetOrgIDFromContext(c *gin.Context) string {
	return c.GetString(string(ContextKeyOrgID))
}

// GetRoleFromContext retrieves the caller's role from Gin context
func GetRoleFromContext(c *gin.Context) Role {
	return ParseRole(c.GetString(string(ContextKeyRole)))
}
