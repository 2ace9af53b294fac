package property

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"villabook/internal/domain"
	"villabook/internal/middleware"
	"villabook/internal/pkg/response"
	"villabook/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the catalog. optionalAuth lets owners and admins
// see their own unapproved listings through the same lookup.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup, optionalAuth gin.HandlerFunc) {
	rg.GET("/properties", h.List)
	rg.GET("/properties/:id", optionalAuth, h.Get)
}

// RegisterOwnerRoutes expects an authenticated group.
func (h *Handler) RegisterOwnerRoutes(rg *gin.RouterGroup) {
	owner := rg.Group("", middleware.RequireRole(domain.RoleOwner))
	owner.GET("/owner/properties", h.ListOwn)
	owner.POST("/properties", h.Create)
	owner.PUT("/properties/:id", h.Update)
	owner.POST("/properties/:id/publish", h.Publish)
	owner.POST("/properties/:id/unpublish", h.Unpublish)
}

// RegisterAdminRoutes expects an authenticated group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin/properties", middleware.AdminOnly())
	admin.GET("", h.ListByApproval)
	admin.POST("/:id/approve", h.Approve)
	admin.POST("/:id/reject", h.Reject)
}

func actorFrom(c *gin.Context) domain.Actor {
	id, role := middleware.CurrentUser(c)
	return domain.Actor{UserID: id, Role: role}
}

func propertyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid property ID")
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, req interface{}, query bool) bool {
	var err error
	if query {
		err = c.ShouldBindQuery(req)
	} else {
		err = c.ShouldBindJSON(req)
	}
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", errs)
		return false
	}
	return true
}

func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	if !bind(c, &q, true) {
		return
	}
	items, total, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Paginated(c, items, total, q.Page, q.Limit)
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) ListOwn(c *gin.Context) {
	items, err := h.service.ListOwn(c.Request.Context(), actorFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreatePropertyRequest
	if !bind(c, &req, false) {
		return
	}
	p, err := h.service.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	var req UpdatePropertyRequest
	if !bind(c, &req, false) {
		return
	}
	p, err := h.service.Update(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) Publish(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	p, err := h.service.Publish(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) Unpublish(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	p, err := h.service.Unpublish(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) ListByApproval(c *gin.Context) {
	var q ApprovalQuery
	if !bind(c, &q, true) {
		return
	}
	items, total, err := h.service.ListByApproval(c.Request.Context(), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Paginated(c, items, total, q.Page, q.Limit)
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	adminID, _ := middleware.CurrentUser(c)
	p, err := h.service.Approve(c.Request.Context(), adminID, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	var req RejectRequest
	if !bind(c, &req, false) {
		return
	}
	adminID, _ := middleware.CurrentUser(c)
	p, err := h.service.Reject(c.Request.Context(), adminID, id, req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrReasonRequired, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrInvalidRates, http.StatusBadRequest, "VALIDATION_ERROR"},
}

func handleError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			response.Error(c, m.status, m.code, err.Error())
			return
		}
	}
	log.Printf("level=error msg=property request failed path=%s err=%v", c.FullPath(), err)
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}
