// Package events publishes booking lifecycle events to RabbitMQ. Failures are
// logged and swallowed by callers so the primary request never depends on the broker.
package events

import (
	"context"
	"time"

	"villabook/internal/domain"
)

const (
	BookingCreated        = "booking.created"
	BookingConfirmed      = "booking.confirmed"
	BookingCompleted      = "booking.completed"
	BookingCancelled      = "booking.cancelled"
	BookingPaymentUpdated = "booking.payment_updated"
	BookingRefunded       = "booking.refunded"
)

// RoutingKeys lists every queue the publisher declares.
var RoutingKeys = []string{
	BookingCreated,
	BookingConfirmed,
	BookingCompleted,
	BookingCancelled,
	BookingPaymentUpdated,
	BookingRefunded,
}

type BookingEvent struct {
	Type           string               `json:"type"`
	BookingID      int64                `json:"booking_id"`
	Reference      string               `json:"reference"`
	PropertyID     int64                `json:"property_id"`
	Status         domain.BookingStatus `json:"status"`
	CheckIn        string               `json:"check_in"`
	CheckOut       string               `json:"check_out"`
	TotalAmount    int64                `json:"total_amount"`
	DepositPaid    bool                 `json:"deposit_paid"`
	BalancePaid    bool                 `json:"balance_paid"`
	RefundedAmount int64                `json:"refunded_amount"`
	Currency       string               `json:"currency"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking) BookingEvent {
	return BookingEvent{
		Type:           eventType,
		BookingID:      b.ID,
		Reference:      b.Reference,
		PropertyID:     b.PropertyID,
		Status:         b.Status,
		CheckIn:        b.CheckIn.Format(domain.DateLayout),
		CheckOut:       b.CheckOut.Format(domain.DateLayout),
		TotalAmount:    b.TotalAmount,
		DepositPaid:    b.DepositPaid,
		BalancePaid:    b.BalancePaid,
		RefundedAmount: b.RefundedAmount,
		Currency:       b.Currency,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BookingEvent) error { return nil }
func (NoopPublisher) Close() error                               { return nil }
