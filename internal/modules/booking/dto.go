package booking

import (
	"villabook/internal/domain"
)

type CreateBookingRequest struct {
	PropertyID      int64  `json:"property_id" validate:"required,min=1"`
	CheckIn         string `json:"check_in" validate:"required,datestr"`
	CheckOut        string `json:"check_out" validate:"required,datestr"`
	Guests          int    `json:"guests" validate:"required,min=1,max=50"`
	GuestName       string `json:"guest_name" validate:"omitempty,max=255"`
	GuestEmail      string `json:"guest_email" validate:"omitempty,email"`
	GuestPhone      string `json:"guest_phone" validate:"omitempty,max=50"`
	SpecialRequests string `json:"special_requests" validate:"omitempty,max=2000"`
}

type QuoteQuery struct {
	CheckIn  string `form:"check_in" json:"check_in" validate:"required,datestr"`
	CheckOut string `form:"check_out" json:"check_out" validate:"required,datestr"`
	Guests   int    `form:"guests" json:"guests" validate:"omitempty,min=1"`
}

type AvailabilityQuery struct {
	From string `form:"from" json:"from" validate:"required,datestr"`
	To   string `form:"to" json:"to" validate:"required,datestr"`
}

type BusyRange struct {
	CheckIn  string               `json:"check_in"`
	CheckOut string               `json:"check_out"`
	Status   domain.BookingStatus `json:"status"`
}

type UpdateStatusRequest struct {
	Status domain.BookingStatus `json:"status" validate:"required,oneof=confirmed completed cancelled"`
	Reason string               `json:"reason" validate:"omitempty,max=2000"`
}

type UpdatePaymentRequest struct {
	Type domain.PaymentKind `json:"type" validate:"required,oneof=deposit balance"`
	Paid *bool              `json:"paid" validate:"required"`
}

// PaymentUpdate is the input of UpdatePaymentStatus, shared by staff and webhooks.
type PaymentUpdate struct {
	Kind     domain.PaymentKind
	Paid     bool
	ChargeID string
	IntentID string
}

type RefundRequest struct {
	Full   bool   `json:"full" form:"full"`
	Amount *int64 `json:"amount" form:"amount"`
	Reason string `json:"reason" form:"reason" validate:"omitempty,max=2000"`
	Stripe bool   `json:"stripe" form:"stripe"`
	Cancel bool   `json:"cancel" form:"cancel"`
}

type RefundResult struct {
	Plan      *RefundPlan     `json:"plan"`
	Refunded  int64           `json:"refunded"`
	RefundIDs []string        `json:"refund_ids,omitempty"`
	Cancelled bool            `json:"cancelled"`
	Booking   *domain.Booking `json:"booking"`
}

// ExternalRefund is a refund observed at the payment provider.
type ExternalRefund struct {
	ID     string
	Amount int64
}

type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=5000"`
}

type ListQuery struct {
	Status domain.BookingStatus `form:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	Page   int                  `form:"page" validate:"omitempty,min=1"`
	Limit  int                  `form:"limit" validate:"omitempty,min=1,max=100"`
}
