package domain

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentKind string

const (
	PaymentDeposit PaymentKind = "deposit"
	PaymentBalance PaymentKind = "balance"
)

func (k PaymentKind) Valid() bool {
	return k == PaymentDeposit || k == PaymentBalance
}

// DepositPercent is the share of the total charged up front.
const DepositPercent = 25

var allowedTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SplitDeposit returns the 25% deposit (rounded half up) and the remaining balance.
func SplitDeposit(total int64) (deposit, balance int64) {
	deposit = (total*DepositPercent + 50) / 100
	return deposit, total - deposit
}

type Booking struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	Reference  string `json:"reference" gorm:"size:36;uniqueIndex;not null"`
	PropertyID int64  `json:"property_id" gorm:"index;not null"`
	GuestID    *int64 `json:"guest_id,omitempty" gorm:"index"`
	GuestName  string `json:"guest_name" gorm:"size:255;not null"`
	GuestEmail string `json:"guest_email" gorm:"size:255;not null"`
	GuestPhone string `json:"guest_phone,omitempty" gorm:"size:50"`

	CheckIn  time.Time `json:"check_in" gorm:"type:date;not null;index"`
	CheckOut time.Time `json:"check_out" gorm:"type:date;not null;index"`
	Guests   int       `json:"guests" gorm:"not null"`
	Nights   int       `json:"nights" gorm:"not null"`

	NightlyRate   int64  `json:"nightly_rate"`
	Discount      int64  `json:"discount"`
	CleaningFee   int64  `json:"cleaning_fee"`
	TotalAmount   int64  `json:"total_amount" gorm:"not null"`
	DepositAmount int64  `json:"deposit_amount" gorm:"not null"`
	BalanceAmount int64  `json:"balance_amount" gorm:"not null"`
	Currency      string `json:"currency" gorm:"size:3;not null"`

	DepositPaid   bool       `json:"deposit_paid" gorm:"not null;default:false"`
	DepositPaidAt *time.Time `json:"deposit_paid_at,omitempty"`
	BalancePaid   bool       `json:"balance_paid" gorm:"not null;default:false"`
	BalancePaidAt *time.Time `json:"balance_paid_at,omitempty"`

	Status BookingStatus `json:"status" gorm:"size:20;not null;default:pending;index"`

	StripeDepositIntentID *string `json:"stripe_deposit_intent_id,omitempty" gorm:"size:255"`
	StripeBalanceIntentID *string `json:"stripe_balance_intent_id,omitempty" gorm:"size:255"`
	StripeChargeID        *string `json:"stripe_charge_id,omitempty" gorm:"size:255"`
	StripeRefundID        *string `json:"stripe_refund_id,omitempty" gorm:"type:text"`

	RefundedAmount int64      `json:"refunded_amount" gorm:"not null;default:0"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`

	CancellationReason string     `json:"cancellation_reason,omitempty" gorm:"type:text"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	BalanceReminderAt  *time.Time `json:"balance_reminder_at,omitempty"`

	SpecialRequests string    `json:"special_requests,omitempty" gorm:"type:text"`
	AdminNotes      string    `json:"admin_notes,omitempty" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

// AmountPaid is the sum of the deposit and balance when marked paid.
func (b *Booking) AmountPaid() int64 {
	var paid int64
	if b.DepositPaid {
		paid += b.DepositAmount
	}
	if b.BalancePaid {
		paid += b.BalanceAmount
	}
	return paid
}

func (b *Booking) Refundable() int64 {
	r := b.AmountPaid() - b.RefundedAmount
	if r < 0 {
		return 0
	}
	return r
}

func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}

func (b *Booking) BelongsToGuest(userID int64) bool {
	return b.GuestID != nil && *b.GuestID == userID
}

func (b *Booking) AmountFor(kind PaymentKind) int64 {
	if kind == PaymentDeposit {
		return b.DepositAmount
	}
	return b.BalanceAmount
}

func (b *Booking) IsPaid(kind PaymentKind) bool {
	if kind == PaymentDeposit {
		return b.DepositPaid
	}
	return b.BalancePaid
}

// HasRefundID reports whether a Stripe refund id was already recorded.
// StripeRefundID holds a comma separated list.
func (b *Booking) HasRefundID(id string) bool {
	if b.StripeRefundID == nil || id == "" {
		return false
	}
	for _, known := range strings.Split(*b.StripeRefundID, ",") {
		if known == id {
			return true
		}
	}
	return false
}

// RefundIDsWith returns the stored refund id list with ids appended.
func (b *Booking) RefundIDsWith(ids ...string) string {
	var all []string
	if b.StripeRefundID != nil && *b.StripeRefundID != "" {
		all = strings.Split(*b.StripeRefundID, ",")
	}
	for _, id := range ids {
		if id != "" && !b.HasRefundID(id) {
			all = append(all, id)
		}
	}
	return strings.Join(all, ",")
}

func (b *Booking) IntentFor(kind PaymentKind) string {
	p := b.StripeBalanceIntentID
	if kind == PaymentDeposit {
		p = b.StripeDepositIntentID
	}
	if p == nil {
		return ""
	}
	return *p
}
