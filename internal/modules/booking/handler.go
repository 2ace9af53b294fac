package booking

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

// RegisterPublicRoutes mounts the unauthenticated property price and calendar
// lookups. optionalAuth lets owners and staff read calendars of listings that
// are not bookable yet.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup, optionalAuth gin.HandlerFunc) {
	rg.GET("/properties/:id/quote", h.Quote)
	rg.GET("/properties/:id/availability", optionalAuth, h.Availability)
}

// RegisterRoutes mounts booking routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, createLimit gin.HandlerFunc) {
	rg.POST("/bookings/create", createLimit, h.CreateBooking)
	rg.GET("/bookings/mine", h.ListMine)
	rg.GET("/bookings/:id", h.GetBooking)
	rg.PATCH("/bookings/:id/status", h.UpdateStatus)

	staff := rg.Group("", middleware.StaffOnly())
	staff.PATCH("/bookings/:id/payment", h.UpdatePayment)
	staff.GET("/bookings/:id/refund", h.RefundQuote)
	staff.POST("/bookings/:id/refund", h.Refund)

	rg.GET("/owner/bookings", middleware.RequireRole(domain.RoleOwner), h.ListOwner)

	admin := rg.Group("", middleware.AdminOnly())
	admin.PATCH("/bookings/:id/notes", h.UpdateNotes)
	admin.GET("/admin/bookings", h.ListAll)
}

func actorFrom(c *gin.Context) domain.Actor {
	id, role := middleware.CurrentUser(c)
	return domain.Actor{UserID: id, Role: role}
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", errs)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", errs)
		return false
	}
	return true
}

func (h *Handler) Quote(c *gin.Context) {
	var q QuoteQuery
	if !bindQuery(c, &q) {
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, quote)
}

func (h *Handler) Availability(c *gin.Context) {
	var q AvailabilityQuery
	if !bindQuery(c, &q) {
		return
	}
	busy, err := h.service.Availability(c.Request.Context(), actorFrom(c), c.Param("id"), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"from": q.From, "to": q.To, "busy": busy})
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.service.CreateBooking(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) ListMine(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	items, total, err := h.service.ListGuestBookings(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Paginated(c, items, total, q.Page, q.Limit)
}

func (h *Handler) ListOwner(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	items, total, err := h.service.ListOwnerBookings(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Paginated(c, items, total, q.Page, q.Limit)
}

func (h *Handler) ListAll(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	items, total, err := h.service.ListAllBookings(c.Request.Context(), q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Paginated(c, items, total, q.Page, q.Limit)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.service.UpdateStatus(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) UpdatePayment(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.service.UpdatePaymentStatus(c.Request.Context(), actorFrom(c), id, PaymentUpdate{Kind: req.Type, Paid: *req.Paid})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) RefundQuote(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req RefundRequest
	if !bindQuery(c, &req) {
		return
	}
	plan, err := h.service.RefundQuote(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, plan)
}

func (h *Handler) Refund(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req RefundRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Refund(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *Handler) UpdateNotes(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req UpdateNotesRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.service.UpdateAdminNotes(c.Request.Context(), id, req.Notes)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrPropertyNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrPropertyNotBookable, http.StatusBadRequest, "PROPERTY_NOT_BOOKABLE"},
	{ErrInvalidBookingWindow, http.StatusBadRequest, "INVALID_BOOKING_WINDOW"},
	{ErrMinNightsNotMet, http.StatusBadRequest, "MIN_NIGHTS_NOT_MET"},
	{ErrTooManyGuests, http.StatusBadRequest, "TOO_MANY_GUESTS"},
	{ErrBookingConflict, http.StatusConflict, "BOOKING_CONFLICT"},
	{ErrStatusChanged, http.StatusConflict, "STATUS_CHANGED"},
	{ErrInvalidTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
	{ErrInvalidPaymentKind, http.StatusBadRequest, "INVALID_PAYMENT_TYPE"},
	{ErrPaymentRefunded, http.StatusConflict, "PAYMENT_REFUNDED"},
	{ErrAlreadyRefunded, http.StatusBadRequest, "ALREADY_REFUNDED"},
	{ErrNothingToRefund, http.StatusBadRequest, "NOTHING_TO_REFUND"},
	{ErrRefundExceedsPaid, http.StatusBadRequest, "REFUND_EXCEEDS_PAID"},
	{ErrInvalidRefundAmount, http.StatusBadRequest, "INVALID_REFUND_AMOUNT"},
	{ErrRefundFailed, http.StatusInternalServerError, "REFUND_FAILED"},
	{ErrPaymentsDisabled, http.StatusInternalServerError, "PAYMENTS_DISABLED"},
}

// ErrorStatus maps a service error to its HTTP status and code.
func ErrorStatus(err error) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", false
}

func handleError(c *gin.Context, err error) {
	status, code, known := ErrorStatus(err)
	if !known {
		log.Printf("level=error msg=booking request failed path=%s err=%v", c.FullPath(), err)
		_ = c.Error(err)
		response.Error(c, status, code, "Internal server error")
		return
	}
	response.Error(c, status, code, err.Error())
}
