// Package client is the REST client for the rentdesk API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/phonginreallife/rentdesk/apperrors"
	"github.com/phonginreallife/rentdesk/db"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 15 * time.Second

	HeaderOrganizationID = "X-Organization-Id"
	HeaderRequestID      = "X-Request-Id"

	loginPath = "/auth/login"
)

// Credentials supplies the token and organization scope of every request
type Credentials interface {
	Token(ctx context.Context) string
	OrganizationID(ctx context.Context) string
}

// UnauthorizedHook is called for every 401 and 403 response except login
type UnauthorizedHook func(ctx context.Context, status int)

type Client struct {
	http       *resty.Client
	creds      Credentials
	onRejected UnauthorizedHook
	logger     *zap.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithUnauthorizedHook(hook UnauthorizedHook) Option {
	return func(c *Client) { c.onRejected = hook }
}

// New creates a client for baseURL. Requests are never retried.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(DefaultTimeout).
			SetRetryCount(0),
		creds:  creds,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		OnBeforeRequest(c.attachCredentials).
		OnAfterResponse(c.inspectResponse)
	return c
}

func (c *Client) attachCredentials(_ *resty.Client, r *resty.Request) error {
	r.SetHeader(HeaderRequestID, uuid.NewString())
	if c.creds == nil {
		return nil
	}
	ctx := r.Context()
	if token := c.creds.Token(ctx); token != "" {
		r.SetAuthToken(token)
	}
	if orgID := c.creds.OrganizationID(ctx); orgID != "" {
		r.SetHeader(HeaderOrganizationID, orgID)
	}
	return nil
}

func (c *Client) inspectResponse(_ *resty.Client, resp *resty.Response) error {
	status := resp.StatusCode()
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return nil
	}
	if strings.HasSuffix(resp.Request.URL, loginPath) {
		return nil
	}
	c.logger.Info("request rejected",
		zap.Int("status_code", status),
		zap.String("url", resp.Request.URL),
	)
	if c.onRejected != nil {
		c.onRejected(resp.Request.Context(), status)
	}
	return nil
}

// toError maps a transport failure or an error status onto the error taxonomy
func (c *Client) toError(resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("request failed", zap.Error(err))
		return apperrors.Wrap(apperrors.KindNetwork, "unable to reach the server", err)
	}
	if !resp.IsError() {
		return nil
	}

	status := resp.StatusCode()
	appErr := &apperrors.Error{
		Kind:    kindForStatus(status),
		Message: http.StatusText(status),
		Code:    strconv.Itoa(status),
	}
	if env, ok := resp.Error().(*db.ErrorResponse); ok && env != nil {
		if env.Message != "" {
			appErr.Message = env.Message
		}
		if env.Code != "" {
			appErr.Code = env.Code
		}
		appErr.Details = env.Details
	}
	return appErr
}

func kindForStatus(status int) apperrors.Kind {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.KindAuthentication
	case http.StatusForbidden:
		return apperrors.KindAuthorization
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.KindValidation
	default:
		return apperrors.KindUnknown
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&db.ErrorResponse{})
}

// Login exchanges credentials for an access token
func (c *Client) Login(ctx context.Context, req db.LoginRequest) (*db.LoginResponse, error) {
	var out db.LoginResponse
	resp, err := c.request(ctx).
		SetBody(req).
		SetResult(&out).
		Post(loginPath)
	if err := c.toError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListParams are the paging, filtering and sorting parameters of list endpoints
type ListParams struct {
	Page     int
	PageSize int
	Filters  map[string]string
	Sort     string
	Order    string
}

func (p ListParams) query() map[string]string {
	q := make(map[string]string, len(p.Filters)+4)
	for k, v := range p.Filters {
		if v != "" {
			q[k] = v
		}
	}
	if p.Page > 0 {
		q["page"] = strconv.Itoa(p.Page)
	}
	if p.PageSize > 0 {
		q["pageSize"] = strconv.Itoa(p.PageSize)
	}
	if p.Sort != "" {
		q["sort"] = p.Sort
	}
	if p.Order != "" {
		q["order"] = p.Order
	}
	return q
}

func list[T any](ctx context.Context, c *Client, path string, params ListParams) (*db.ListResponse[T], error) {
	var out db.ListResponse[T]
	resp, err := c.request(ctx).
		SetQueryParams(params.query()).
		SetResult(&out).
		Get(path)
	if err := c.toError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// maxPageSize is the largest page the API serves
const maxPageSize = 100

// listAll walks every page of path until meta.total items are collected
func listAll[T any](ctx context.Context, c *Client, path string, params ListParams) ([]T, error) {
	params.PageSize = maxPageSize
	var items []T
	for page := 1; ; page++ {
		params.Page = page
		res, err := list[T](ctx, c, path, params)
		if err != nil {
			return nil, err
		}
		items = append(items, res.Items...)
		if len(res.Items) == 0 || len(items) >= res.Meta.Total {
			return items, nil
		}
	}
}

func get[T any](ctx context.Context, c *Client, path, id string) (*T, error) {
	var out T
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get(path + "/{id}")
	if err := c.toError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrganizations(ctx context.Context, params ListParams) (*db.ListResponse[db.Organization], error) {
	return list[db.Organization](ctx, c, "/organizations", params)
}

func (c *Client) ListProperties(ctx context.Context, params ListParams) (*db.ListResponse[db.Property], error) {
	return list[db.Property](ctx, c, "/properties", params)
}

func (c *Client) ListUnits(ctx context.Context, params ListParams) (*db.ListResponse[db.Unit], error) {
	return list[db.Unit](ctx, c, "/units", params)
}

// AllUnits returns every unit matching params, across pages
func (c *Client) AllUnits(ctx context.Context, params ListParams) ([]db.Unit, error) {
	return listAll[db.Unit](ctx, c, "/units", params)
}

func (c *Client) ListTenants(ctx context.Context, params ListParams) (*db.ListResponse[db.Tenant], error) {
	return list[db.Tenant](ctx, c, "/tenants", params)
}

func (c *Client) ListLeases(ctx context.Context, params ListParams) (*db.ListResponse[db.Lease], error) {
	return list[db.Lease](ctx, c, "/leases", params)
}

// AllLeases returns every lease matching params, across pages
func (c *Client) AllLeases(ctx context.Context, params ListParams) ([]db.Lease, error) {
	return listAll[db.Lease](ctx, c, "/leases", params)
}

func (c *Client) ListPayments(ctx context.Context, params ListParams) (*db.ListResponse[db.Payment], error) {
	return list[db.Payment](ctx, c, "/payments", params)
}

func (c *Client) GetPayment(ctx context.Context, id string) (*db.Payment, error) {
	return get[db.Payment](ctx, c, "/payments", id)
}

// LeasesForUnit returns the unit's leases, most recently started first
func (c *Client) LeasesForUnit(ctx context.Context, unitID string) ([]db.Lease, error) {
	return c.AllLeases(ctx, ListParams{
		Filters: map[string]string{"unitId": unitID},
		Sort:    "startDate",
		Order:   "desc",
	})
}

// MarkPaymentPaidRequest is the body of POST /payments/:id/mark-paid
type MarkPaymentPaidRequest struct {
	PaidAt string `json:"paidAt,omitempty"`
}

// MarkPaymentPaid settles a payment. paidAt defaults to today on the server.
func (c *Client) MarkPaymentPaid(ctx context.Context, id string, paidAt string) (*db.Payment, error) {
	if id == "" {
		return nil, apperrors.New(apperrors.KindValidation, "payment id is required")
	}
	var out db.Payment
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetBody(MarkPaymentPaidRequest{PaidAt: paidAt}).
		SetResult(&out).
		Post("/payments/{id}/mark-paid")
	if err := c.toError(resp, err); err != nil {
		return nil, fmt.Errorf("mark payment %s paid: %w", id, err)
	}
	return &out, nil
}
