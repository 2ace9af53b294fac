package property

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
	h.RegisterOwnerRoutes(protected)
	h.RegisterAdminRoutes(protected)

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

func TestHandler_OwnerLifecycle(t *testing.T) {
	a := newTestAPI(t)

	w, resp := a.do(t, http.MethodPost, "/api/v1/properties", a.owner, createRequest("Quinta do Sol"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p domain.Property
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, "quinta-do-sol", p.Slug)

	path := fmt.Sprintf("/api/v1/properties/%d", p.ID)

	w, _ = a.do(t, http.MethodGet, "/api/v1/properties/quinta-do-sol", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = a.do(t, http.MethodGet, "/api/v1/properties/quinta-do-sol", a.owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(t, http.MethodPost, path+"/publish", a.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/properties/%d/approve", p.ID), a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = a.do(t, http.MethodGet, "/api/v1/properties?city=lisbon", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []domain.Property `json:"items"`
		Total int64             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Total)

	w, _ = a.do(t, http.MethodPut, path, a.owner, map[string]interface{}{"description": "Pool and garden"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(t, http.MethodGet, "/api/v1/properties/quinta-do-sol", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = a.do(t, http.MethodGet, "/api/v1/owner/properties", a.owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "Pool and garden")
}

func TestHandler_RoleChecks(t *testing.T) {
	a := newTestAPI(t)
	p := a.create(t, "Private Villa")
	guest := &domain.User{ID: 500, Role: domain.RoleGuest}

	w, _ := a.do(t, http.MethodPost, "/api/v1/properties", nil, createRequest("Anon"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := a.do(t, http.MethodPost, "/api/v1/properties", guest, createRequest("Guest"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	w, resp = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/properties/%d/publish", p.ID), a.other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	w, _ = a.do(t, http.MethodGet, "/api/v1/admin/properties", a.owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = a.do(t, http.MethodGet, "/api/v1/admin/properties?approval=pending", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "private-villa")
}

func TestHandler_Validation(t *testing.T) {
	a := newTestAPI(t)
	p := a.create(t, "Dune House")

	w, resp := a.do(t, http.MethodPost, "/api/v1/properties", a.owner, map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)

	w, resp = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/properties/%d/reject", p.ID), a.admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)

	w, resp = a.do(t, http.MethodPost, "/api/v1/admin/properties/abc/approve", a.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", resp.Code)

	w, resp = a.do(t, http.MethodGet, "/api/v1/admin/properties?approval=maybe", a.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)

	w, resp = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/properties/%d/reject", p.ID), a.admin, map[string]string{"reason": "Duplicate listing"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"approval":"rejected"`)
}
