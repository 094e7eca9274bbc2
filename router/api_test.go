package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phonginreallife/rentdesk/db"
	"github.com/phonginreallife/rentdesk/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := db.NewMemoryStore()
	require.NoError(t, db.SeedDemoData(store, time.Now(), bcrypt.MinCost))

	tokens, err := services.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	return NewGinRouter(store, tokens, zap.NewNop())
}

func doJSON(r http.Handler, method, path, token, orgID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if orgID != "" {
		req.Header.Set("X-Organization-Id", orgID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, email, orgCode string) db.LoginResponse {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/auth/login", "", "", db.LoginRequest{
		Email: email, Password: db.DemoPassword, OrganizationCode: orgCode,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp db.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) db.ErrorResponse {
	t.Helper()
	var e db.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestLogin(t *testing.T) {
	r := setupRouter(t)

	resp := login(t, r, "owner@acme.test", "")
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "OWNER", resp.User.Role)
	require.Len(t, resp.User.Organizations, 2)
	assert.Equal(t, db.DemoOrgAcme, resp.User.Organizations[0].ID)

	resp = login(t, r, "owner@acme.test", "harbor")
	assert.Equal(t, "VIEWER", resp.User.Role)

	w := doJSON(r, http.MethodPost, "/auth/login", "", "", db.LoginRequest{Email: "owner@acme.test", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, w).Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", "", db.LoginRequest{Email: "ghost@acme.test", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", "", map[string]string{"email": "owner@acme.test"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, http.MethodGet, "/units", "", db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Code)

	w = doJSON(r, http.MethodGet, "/units", "forged.token.value", db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrganizationScope(t *testing.T) {
	r := setupRouter(t)
	operator := login(t, r, "operator@acme.test", "").AccessToken

	w := doJSON(r, http.MethodGet, "/units", operator, db.DemoOrgHarbor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// default scope is the first membership
	w = doJSON(r, http.MethodGet, "/units", operator, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var units db.ListResponse[db.Unit]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &units))
	assert.Equal(t, 4, units.Meta.Total)

	owner := login(t, r, "owner@acme.test", "").AccessToken
	w = doJSON(r, http.MethodGet, "/units", owner, db.DemoOrgHarbor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &units))
	assert.Equal(t, 0, units.Meta.Total)
}

func TestListEndpoints(t *testing.T) {
	r := setupRouter(t)
	token := login(t, r, "viewer@acme.test", "").AccessToken

	for _, path := range []string{"/organizations", "/properties", "/units", "/tenants", "/leases", "/payments"} {
		t.Run(path, func(t *testing.T) {
			w := doJSON(r, http.MethodGet, path, token, db.DemoOrgAcme, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var page struct {
				Items []json.RawMessage `json:"items"`
				Meta  db.ListMeta       `json:"meta"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
			assert.NotEmpty(t, page.Items)
			assert.Equal(t, 1, page.Meta.Page)
		})
	}

	w := doJSON(r, http.MethodGet, "/payments?page=0", token, db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeasesSortedByStartDate(t *testing.T) {
	r := setupRouter(t)
	token := login(t, r, "staff@acme.test", "").AccessToken

	w := doJSON(r, http.MethodGet, "/leases?sort=startDate&order=desc", token, db.DemoOrgAcme, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page db.ListResponse[db.Lease]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 3)
	assert.Equal(t, db.LeasePending, page.Items[0].Status)
	assert.Equal(t, db.LeaseExpired, page.Items[2].Status)
}

func TestMarkPaymentPaid(t *testing.T) {
	r := setupRouter(t)
	operator := login(t, r, "operator@acme.test", "").AccessToken
	viewer := login(t, r, "viewer@acme.test", "").AccessToken

	w := doJSON(r, http.MethodGet, "/payments?status=OVERDUE", operator, db.DemoOrgAcme, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page db.ListResponse[db.Payment]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	id := page.Items[0].ID

	// viewer is read-only
	w = doJSON(r, http.MethodPost, "/payments/"+id+"/mark-paid", viewer, db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "viewer")

	w = doJSON(r, http.MethodPost, "/payments/"+id+"/mark-paid", operator, db.DemoOrgAcme, map[string]string{"paidAt": "2026-01-05"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var paid db.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paid))
	assert.Equal(t, db.PaymentPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, "2026-01-05", *paid.PaidAt)

	// second attempt conflicts
	w = doJSON(r, http.MethodPost, "/payments/"+id+"/mark-paid", operator, db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/payments/missing/mark-paid", operator, db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/payments/"+id+"/mark-paid", operator, db.DemoOrgAcme, map[string]string{"paidAt": "yesterday"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDetailIsOrganizationScoped(t *testing.T) {
	r := setupRouter(t)
	owner := login(t, r, "owner@acme.test", "").AccessToken

	w := doJSON(r, http.MethodGet, "/properties", owner, db.DemoOrgAcme, nil)
	var page db.ListResponse[db.Property]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.NotEmpty(t, page.Items)
	id := page.Items[0].ID

	w = doJSON(r, http.MethodGet, "/properties/"+id, owner, db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/properties/"+id, owner, db.DemoOrgHarbor, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/organizations/"+db.DemoOrgHarbor, owner, db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	operator := login(t, r, "operator@acme.test", "").AccessToken
	w = doJSON(r, http.MethodGet, "/organizations/"+db.DemoOrgHarbor, operator, db.DemoOrgAcme, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
