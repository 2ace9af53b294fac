package payment

import (
	"context"

	"villabook/internal/domain"
	"villabook/internal/modules/booking"
)

// BookingService is the slice of the booking service payments drive.
type BookingService interface {
	GetBooking(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error)
	UpdatePaymentStatus(ctx context.Context, actor domain.Actor, id int64, upd booking.PaymentUpdate) (*domain.Booking, error)
	RecordExternalRefund(ctx context.Context, id int64, refunds []booking.ExternalRefund) (*domain.Booking, error)
}

type intentLookup interface {
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error)
}
