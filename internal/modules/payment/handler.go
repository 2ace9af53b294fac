package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"villabook/internal/domain"
	"villabook/internal/middleware"
	"villabook/internal/modules/booking"
	"villabook/internal/pkg/response"
	"villabook/internal/pkg/validator"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 65536

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/:id/payment-intent", h.CreatePaymentIntent)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/booking-payments", h.Webhook)
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", errs)
		return
	}

	uid, role := middleware.CurrentUser(c)
	resp, err := h.service.CreatePaymentIntent(c.Request.Context(), domain.Actor{UserID: uid, Role: role}, id, req.Type)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.loggerf("level=error msg=webhook body read failed err=%v", err)
		response.Error(c, http.StatusInternalServerError, "READ_FAILED", "Could not read request body")
		return
	}

	res, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.loggerf("level=info msg=webhook handled event_id=%s type=%s duplicate=%t booking_id=%d",
		res.EventID, res.Type, res.Duplicate, res.BookingID)
	response.Success(c, http.StatusOK, res)
}

var errorMappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
	{ErrAlreadyPaid, http.StatusConflict, "ALREADY_PAID"},
	{ErrDepositRequired, http.StatusConflict, "DEPOSIT_REQUIRED"},
	{ErrBookingCancelled, http.StatusConflict, "BOOKING_CANCELLED"},
	{ErrPaymentsDisabled, http.StatusInternalServerError, "PAYMENTS_DISABLED"},
	{ErrProvider, http.StatusInternalServerError, "PAYMENT_PROVIDER_ERROR"},
}

func (h *Handler) handleError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			response.Error(c, m.status, m.code, err.Error())
			return
		}
	}
	status, code, known := booking.ErrorStatus(err)
	if !known {
		h.loggerf("level=error msg=payment request failed path=%s err=%v", c.FullPath(), err)
		_ = c.Error(err)
		response.Error(c, status, code, "Internal server error")
		return
	}
	response.Error(c, status, code, err.Error())
}
