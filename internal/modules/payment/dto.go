package payment

import "villabook/internal/domain"

type CreateIntentRequest struct {
	Type domain.PaymentKind `json:"type" validate:"required,oneof=deposit balance"`
}

type CreateIntentResponse struct {
	*Intent
	BookingID int64              `json:"booking_id"`
	Type      domain.PaymentKind `json:"type"`
}

// WebhookResult reports what the webhook did with an event.
type WebhookResult struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	BookingID int64  `json:"booking_id,omitempty"`
}
