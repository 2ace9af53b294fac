package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain"
	"villabook/internal/middleware"
	"villabook/internal/pkg/jwt"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testAPI struct {
	*fixture
	router *gin.Engine
	tokens *jwt.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	tokens := jwt.New("test-secret", time.Hour)
	h := NewHandler(f.svc)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api, middleware.OptionalJWTAuth(tokens))
	protected := api.Group("", middleware.JWTAuth(tokens))
	h.RegisterRoutes(protected, func(c *gin.Context) { c.Next() })

	return &testAPI{fixture: f, router: r, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path string, user *domain.User, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := a.tokens.GenerateToken(user.ID, user.Role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestHandler_QuoteIsPublic(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodGet, "/api/v1/properties/casa-azul/quote?check_in=2026-07-03&check_out=2026-07-06&guests=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var q Quote
	require.NoError(t, json.Unmarshal(resp.Data, &q))
	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, int64(45000), q.Total)

	w, resp = a.do(t, http.MethodGet, "/api/v1/properties/casa-azul/quote?check_in=2026-07-01&check_out=2026-07-02", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MIN_NIGHTS_NOT_MET", resp.Code)

	w, resp = a.do(t, http.MethodGet, "/api/v1/properties/casa-azul/quote?check_in=july&check_out=2026-07-02", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestHandler_AvailabilityHidesUnlistedProperty(t *testing.T) {
	a := newTestAPI(t)
	a.book(t, "2026-07-10", "2026-07-12")
	require.NoError(t, a.db.Model(&domain.Property{}).Where("id = ?", a.property.ID).
		Update("status", domain.PropertyUnpublished).Error)
	path := "/api/v1/properties/casa-azul/availability?from=2026-07-01&to=2026-07-31"

	w, resp := a.do(t, http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)

	w, _ = a.do(t, http.MethodGet, path, a.other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = a.do(t, http.MethodGet, path, a.owner, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	assert.Contains(t, string(resp.Data), `"check_in":"2026-07-10"`)
}

func TestHandler_StripeRefundWithoutProvider(t *testing.T) {
	a := newTestAPI(t)
	b := a.book(t, "2026-07-01", "2026-07-03")
	a.payBoth(t, b.ID)
	a.svc.refunder = nil

	w, resp := a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/refund", b.ID), a.owner,
		map[string]interface{}{"full": true, "stripe": true})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "PAYMENTS_DISABLED", resp.Code)
}

func TestHandler_CreateRequiresAuth(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodPost, "/api/v1/bookings/create", nil, CreateBookingRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)
}

func TestHandler_CreateAndConflict(t *testing.T) {
	a := newTestAPI(t)
	req := CreateBookingRequest{PropertyID: a.property.ID, CheckIn: "2026-07-01", CheckOut: "2026-07-04", Guests: 2}

	w, resp := a.do(t, http.MethodPost, "/api/v1/bookings/create", a.guest, req)
	require.Equal(t, http.StatusCreated, w.Code, resp.Error)
	var b domain.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	assert.Equal(t, domain.BookingPending, b.Status)

	w, resp = a.do(t, http.MethodPost, "/api/v1/bookings/create", a.guest, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BOOKING_CONFLICT", resp.Code)

	w, resp = a.do(t, http.MethodGet, "/api/v1/bookings/mine", a.guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []domain.Booking `json:"items"`
		Total int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestHandler_CreateValidation(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodPost, "/api/v1/bookings/create", a.guest, map[string]interface{}{
		"property_id": a.property.ID,
		"check_in":    "2026-07-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestHandler_StaffRoutes(t *testing.T) {
	a := newTestAPI(t)
	b := a.book(t, "2026-07-01", "2026-07-03")
	paymentPath := fmt.Sprintf("/api/v1/bookings/%d/payment", b.ID)
	paid := true

	w, resp := a.do(t, http.MethodPatch, paymentPath, a.guest, UpdatePaymentRequest{Type: domain.PaymentDeposit, Paid: &paid})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	w, resp = a.do(t, http.MethodPatch, paymentPath, a.other, UpdatePaymentRequest{Type: domain.PaymentDeposit, Paid: &paid})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = a.do(t, http.MethodPatch, paymentPath, a.owner, UpdatePaymentRequest{Type: domain.PaymentDeposit, Paid: &paid})
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	var got domain.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, domain.BookingConfirmed, got.Status)

	w, resp = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d/refund?full=true", b.ID), a.owner, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	var plan RefundPlan
	require.NoError(t, json.Unmarshal(resp.Data, &plan))
	assert.Equal(t, int64(6250), plan.Amount)
	assert.True(t, plan.ForcesCancel)

	w, resp = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/refund", b.ID), a.owner, RefundRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NOTHING_TO_REFUND", resp.Code)
}

func TestHandler_StatusTransitionErrors(t *testing.T) {
	a := newTestAPI(t)
	b := a.book(t, "2026-07-01", "2026-07-03")
	path := fmt.Sprintf("/api/v1/bookings/%d/status", b.ID)

	w, resp := a.do(t, http.MethodPatch, path, a.owner, UpdateStatusRequest{Status: domain.BookingCompleted})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", resp.Code)

	w, resp = a.do(t, http.MethodPatch, path, a.guest, UpdateStatusRequest{Status: domain.BookingCancelled, Reason: "sick"})
	require.Equal(t, http.StatusOK, w.Code, resp.Error)

	w, _ = a.do(t, http.MethodGet, "/api/v1/bookings/abc", a.guest, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_AdminOnlyRoutes(t *testing.T) {
	a := newTestAPI(t)
	a.book(t, "2026-07-01", "2026-07-03")

	w, _ := a.do(t, http.MethodGet, "/api/v1/admin/bookings", a.owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := &domain.User{ID: 999, Role: domain.RoleAdmin}
	w, resp := a.do(t, http.MethodGet, "/api/v1/admin/bookings?status=pending", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)

	w, resp = a.do(t, http.MethodGet, "/api/v1/owner/bookings", a.owner, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Total)
}
