package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/db"
	"go.uber.org/zap"
)

// ResourceHandler serves the organization-scoped CRUD reads and the
// mark-paid transition.
type ResourceHandler struct {
	Store  *db.MemoryStore
	logger *zap.Logger
	now    func() time.Time
}

func NewResourceHandler(store *db.MemoryStore, logger *zap.Logger) *ResourceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceHandler{Store: store, logger: logger, now: time.Now}
}

// listQuery reads page, pageSize, sort, order and the given filters
func listQuery(c *gin.Context, filters ...string) (db.ListQuery, bool) {
	q := db.ListQuery{Filters: map[string]string{}}
	for _, key := range []string{"page", "pageSize"} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, "INVALID_QUERY", key+" must be a positive integer",
				map[string]any{"field": key})
			return q, false
		}
		if key == "page" {
			q.Page = n
		} else {
			q.PageSize = n
		}
	}
	for _, f := range filters {
		if v := c.Query(f); v != "" {
			q.Filters[f] = v
		}
	}
	q.SortField = c.Query("sort")
	q.Descending = strings.EqualFold(c.Query("order"), "desc")
	return q, true
}

func (h *ResourceHandler) ListOrganizations(c *gin.Context) {
	q, ok := listQuery(c)
	if !ok {
		return
	}
	ids := c.GetStringSlice("memberships")
	c.JSON(http.StatusOK, h.Store.ListOrganizations(ids, q))
}

func (h *ResourceHandler) GetOrganization(c *gin.Context) {
	id := c.Param("id")
	if !contains(c.GetStringSlice("memberships"), id) {
		respondStoreError(c, db.ErrNotFound)
		return
	}
	org, err := h.Store.GetOrganization(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (h *ResourceHandler) ListProperties(c *gin.Context) {
	q, ok := listQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Store.ListProperties(authz.GetOrgIDFromContext(c), q))
}

func (h *ResourceHandler) GetProperty(c *gin.Context) {
	respondRecord(c, func(orgID, id string) (any, error) { return h.Store.GetProperty(orgID, id) })
}

func (h *ResourceHandler) ListUnits(c *gin.Context) {
	q, ok := listQuery(c, "propertyId")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Store.ListUnits(authz.GetOrgIDFromContext(c), q))
}

func (h *ResourceHandler) GetUnit(c *gin.Context) {
	respondRecord(c, func(orgID, id string) (any, error) { return h.Store.GetUnit(orgID, id) })
}

func (h *ResourceHandler) ListTenants(c *gin.Context) {
	q, ok := listQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Store.ListTenants(authz.GetOrgIDFromContext(c), q))
}

func (h *ResourceHandler) GetTenant(c *gin.Context) {
	respondRecord(c, func(orgID, id string) (any, error) { return h.Store.GetTenant(orgID, id) })
}

func (h *ResourceHandler) ListLeases(c *gin.Context) {
	q, ok := listQuery(c, "unitId", "status")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Store.ListLeases(authz.GetOrgIDFromContext(c), q))
}

func (h *ResourceHandler) GetLease(c *gin.Context) {
	respondRecord(c, func(orgID, id string) (any, error) { return h.Store.GetLease(orgID, id) })
}

func (h *ResourceHandler) ListPayments(c *gin.Context) {
	q, ok := listQuery(c, "status", "leaseId")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Store.ListPayments(authz.GetOrgIDFromContext(c), q))
}

func (h *ResourceHandler) GetPayment(c *gin.Context) {
	respondRecord(c, func(orgID, id string) (any, error) { return h.Store.GetPayment(orgID, id) })
}

type markPaidRequest struct {
	PaidAt string `json:"paidAt"`
}

// MarkPaymentPaid handles POST /payments/:id/mark-paid
func (h *ResourceHandler) MarkPaymentPaid(c *gin.Context) {
	var req markPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", nil)
			return
		}
	}

	paidAt := h.now()
	if req.PaidAt != "" {
		t, err := db.ParseDate(req.PaidAt)
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "INVALID_DATE", "paidAt must be a date (YYYY-MM-DD)",
				map[string]any{"field": "paidAt"})
			return
		}
		paidAt = t
	}

	orgID := authz.GetOrgIDFromContext(c)
	payment, err := h.Store.MarkPaymentPaid(orgID, c.Param("id"), paidAt)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	h.logger.Info("payment marked paid",
		zap.String("payment_id", payment.ID),
		zap.String("org_id", orgID),
		zap.String("user_id", c.GetString(string(authz.ContextKeyUserID))),
	)
	c.JSON(http.StatusOK, payment)
}

func respondRecord(c *gin.Context, get func(orgID, id string) (any, error)) {
	rec, err := get(authz.GetOrgIDFromContext(c), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}
