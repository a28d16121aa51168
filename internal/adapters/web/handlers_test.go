package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// stubService records the last call and returns canned results.
type stubService struct {
	app.ApplicationService

	createReq  app.CreateOrderRequest
	createRes  *app.CreateOrderResult
	err        error
	stockSetTo *int
	asOf       time.Time
}

func (s *stubService) CreateOrder(_ context.Context, req app.CreateOrderRequest) (*app.CreateOrderResult, error) {
	s.createReq = req
	return s.createRes, s.err
}

func (s *stubService) GetOrder(_ context.Context, id int) (*app.OrderResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &app.OrderResult{Order: &core.Order{ID: id, OrderNumber: "ABCD1234"}}, nil
}

func (s *stubService) DeleteOrder(context.Context, int) error { return s.err }

func (s *stubService) SetStock(_ context.Context, _ int, v int) error {
	s.stockSetTo = &v
	return s.err
}

func (s *stubService) AverageCost(_ context.Context, _ int, asOf time.Time) (decimal.Decimal, error) {
	s.asOf = asOf
	return decimal.RequireFromString("18.3333"), s.err
}

func (s *stubService) AuthenticateUser(_ context.Context, username, password string) (*app.UserSession, error) {
	if username == "ana" && password == "pw" {
		return &app.UserSession{UserID: 3, Username: "ana", Role: core.RoleStaff}, nil
	}
	return nil, app.ErrInvalidCredentials
}

func newTestServer(svc app.ApplicationService) http.Handler {
	return NewHandler(svc, Options{JWTSecret: testSecret})
}

func authed(t *testing.T, req *http.Request, role core.Role) *http.Request {
	t.Helper()
	token, err := signToken(testSecret, 1, role, time.Minute)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: authCookie, Value: token})
	return req
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthIsPublic(t *testing.T) {
	rec := do(newTestServer(&stubService{}), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	rec := do(newTestServer(&stubService{}), httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
}

func TestCustomerRoleIsForbidden(t *testing.T) {
	req := authed(t, httptest.NewRequest(http.MethodGet, "/api/orders/1", nil), core.RoleCustomer)
	rec := do(newTestServer(&stubService{}), req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateOrder_PassesIdempotencyKey(t *testing.T) {
	svc := &stubService{createRes: &app.CreateOrderResult{OrderID: 7, OrderNumber: "QWER1234"}}
	body := `{"customer_phone":"0811","lines":[{"product_id":1,"quantity":2,"unit_price":1500}],"payment_status":"success"}`
	req := authed(t, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)), core.RoleStaff)
	req.Header.Set("Idempotency-Key", "abc-123")

	rec := do(newTestServer(svc), req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "abc-123", svc.createReq.IdempotencyKey)
	assert.Equal(t, core.PaymentSuccess, svc.createReq.Order.PaymentStatus)
	require.Len(t, svc.createReq.Order.Lines, 1)

	var res app.CreateOrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 7, res.OrderID)
}

func TestCreateOrder_ReplayReturns200(t *testing.T) {
	svc := &stubService{createRes: &app.CreateOrderResult{OrderID: 7, Replayed: true}}
	req := authed(t, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`)), core.RoleAdmin)
	rec := do(newTestServer(svc), req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("order 9: %w", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"validation", fmt.Errorf("%w: bad", core.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"insufficient stock", core.ErrInsufficientStock, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"in flight", app.ErrRequestInFlight, http.StatusConflict, "CONFLICT"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authed(t, httptest.NewRequest(http.MethodGet, "/api/orders/9", nil), core.RoleStaff)
			rec := do(newTestServer(&stubService{err: tt.err}), req)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.RequestID)
			if tt.code == "INTERNAL_ERROR" {
				assert.NotContains(t, body.Error, "connection reset")
			}
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	req := authed(t, httptest.NewRequest(http.MethodDelete, "/api/orders/abc", nil), core.RoleStaff)
	rec := do(newTestServer(&stubService{}), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteOrder_NoContent(t *testing.T) {
	req := authed(t, httptest.NewRequest(http.MethodDelete, "/api/orders/4", nil), core.RoleStaff)
	rec := do(newTestServer(&stubService{}), req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetStock_AdminOnly(t *testing.T) {
	svc := &stubService{}
	h := newTestServer(svc)

	staff := authed(t, httptest.NewRequest(http.MethodPut, "/api/products/1/stock", strings.NewReader(`{"stock":5}`)), core.RoleStaff)
	assert.Equal(t, http.StatusForbidden, do(h, staff).Code)
	assert.Nil(t, svc.stockSetTo)

	admin := authed(t, httptest.NewRequest(http.MethodPut, "/api/products/1/stock", strings.NewReader(`{"stock":5}`)), core.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, do(h, admin).Code)
	require.NotNil(t, svc.stockSetTo)
	assert.Equal(t, 5, *svc.stockSetTo)

	missing := authed(t, httptest.NewRequest(http.MethodPut, "/api/products/1/stock", strings.NewReader(`{}`)), core.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, do(h, missing).Code)
}

func TestAverageCost_ParsesAsOf(t *testing.T) {
	svc := &stubService{}
	req := authed(t, httptest.NewRequest(http.MethodGet, "/api/products/2/average-cost?as_of=2026-03-01T10:00:00Z", nil), core.RoleStaff)
	rec := do(newTestServer(svc), req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), svc.asOf.UTC())
	assert.Contains(t, rec.Body.String(), `"average_cost":"18.3333"`)

	bad := authed(t, httptest.NewRequest(http.MethodGet, "/api/products/2/average-cost?as_of=yesterday", nil), core.RoleStaff)
	assert.Equal(t, http.StatusBadRequest, do(newTestServer(svc), bad).Code)
}

func TestLogin_SetsCookie(t *testing.T) {
	h := newTestServer(&stubService{})

	rec := do(h, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ana","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// The issued token opens protected routes.
	req := httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusOK, do(h, req).Code)

	bad := do(h, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ana","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestBodyLimit(t *testing.T) {
	big := `{"customer_phone":"` + strings.Repeat("9", 2<<20) + `"}`
	req := authed(t, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(big)), core.RoleStaff)
	rec := do(newTestServer(&stubService{}), req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewHandler(&stubService{}, Options{JWTSecret: testSecret, AllowedOrigins: "https://shop.example"})

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := do(h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	other.Header.Set("Origin", "https://evil.example")
	assert.Empty(t, do(h, other).Header().Get("Access-Control-Allow-Origin"))
}
