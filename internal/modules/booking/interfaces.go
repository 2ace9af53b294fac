package booking

import (
	"context"
	"time"

	"villabook/internal/domain"
	"villabook/internal/repository"
)

// BookingRepository defines the persistence operations the service needs
type BookingRepository interface {
	CreateIfAvailable(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ActiveInRange(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.Booking, error)
	ListByGuest(ctx context.Context, guestID int64, f repository.BookingFilter) ([]domain.Booking, int64, error)
	ListByOwner(ctx context.Context, ownerID int64, f repository.BookingFilter) ([]domain.Booking, int64, error)
	ListAll(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, int64, error)
	TransitionStatus(ctx context.Context, id int64, from, to domain.BookingStatus, fields map[string]interface{}) error
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	FinishedConfirmed(ctx context.Context, today time.Time) ([]domain.Booking, error)
	BalanceDue(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
}

type PropertyRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Property, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Notifier sends booking emails. Implementations log and swallow their own errors.
type Notifier interface {
	BookingReceived(ctx context.Context, b *domain.Booking, p *domain.Property)
	OwnerNewBooking(ctx context.Context, b *domain.Booking, p *domain.Property, owner *domain.User)
	BookingConfirmed(ctx context.Context, b *domain.Booking, p *domain.Property)
	BookingCancelled(ctx context.Context, b *domain.Booking, p *domain.Property, refunded int64)
	PaymentReceived(ctx context.Context, b *domain.Booking, p *domain.Property, kind domain.PaymentKind)
	RefundIssued(ctx context.Context, b *domain.Booking, p *domain.Property, amount int64)
	BalanceReminder(ctx context.Context, b *domain.Booking, p *domain.Property)
}

// Refunder issues a refund against a payment intent and returns the refund id.
type Refunder interface {
	Refund(ctx context.Context, paymentIntentID string, amount int64) (string, error)
}
