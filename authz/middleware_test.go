package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(userID, role string, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(string(ContextKeyUserID), userID)
			c.Set(string(ContextKeyRole), role)
		}
		c.Next()
	})
	r.POST("/payments/:id/mark-paid", handler, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequirePermission(t *testing.T) {
	m := NewAuthzMiddleware(nil)
	gate := m.RequirePermission(ResourcePayments, ActionEdit)

	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
		wantCode   string
	}{
		{"anonymous", "", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"viewer forbidden", "user-1", "VIEWER", http.StatusForbidden, "FORBIDDEN"},
		{"staff allowed", "user-2", "STAFF", http.StatusOK, ""},
		{"lowercase admin allowed", "user-3", "admin", http.StatusOK, ""},
		{"unknown role forbidden", "user-4", "member", http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.userID, tt.role, gate)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/payments/pay-1/mark-paid", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body["code"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestAutoDetectAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewAuthzMiddleware(nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(string(ContextKeyUserID), "user-1")
		c.Set(string(ContextKeyRole), "OPERATOR")
		c.Next()
	})
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/organizations", m.AutoDetectAction(ResourceOrganizations), ok)
	r.DELETE("/organizations/:id", m.AutoDetectAction(ResourceOrganizations), ok)
	r.DELETE("/units/:id", m.AutoDetectAction(ResourceUnits), ok)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/organizations", http.StatusNoContent},
		{http.MethodDelete, "/organizations/org-1", http.StatusForbidden},
		{http.MethodDelete, "/units/unit-1", http.StatusNoContent},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestMethodToAction(t *testing.T) {
	assert.Equal(t, ActionList, MethodToAction(http.MethodGet, false))
	assert.Equal(t, ActionShow, MethodToAction(http.MethodGet, true))
	assert.Equal(t, ActionCreate, MethodToAction(http.MethodPost, false))
	assert.Equal(t, ActionEdit, MethodToAction(http.MethodPost, true))
	assert.Equal(t, ActionEdit, MethodToAction(http.MethodPatch, true))
	assert.Equal(t, ActionDelete, MethodToAction(http.MethodDelete, true))
}
