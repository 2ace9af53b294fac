package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"villabook/internal/cache"
	"villabook/internal/domain"
	"villabook/internal/modules/booking"
)

const (
	metaBookingID        = "booking_id"
	metaBookingReference = "booking_reference"
	metaPaymentType      = "payment_type"
)

type Service struct {
	gateway  Gateway
	bookings BookingService
	intents  intentLookup
	dedupe   cache.Deduper
	loggerf  func(format string, args ...interface{})
}

// NewService wires the payment flows. A nil gateway disables online payments
// and the webhook.
func NewService(gateway Gateway, bookings BookingService, intents intentLookup, dedupe cache.Deduper, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = log.Printf
	}
	return &Service{
		gateway:  gateway,
		bookings: bookings,
		intents:  intents,
		dedupe:   dedupe,
		loggerf:  loggerf,
	}
}

// CreatePaymentIntent opens a provider payment for the deposit or the balance
// and remembers the intent on the booking.
func (s *Service) CreatePaymentIntent(ctx context.Context, actor domain.Actor, bookingID int64, kind domain.PaymentKind) (*CreateIntentResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if !kind.Valid() {
		return nil, booking.ErrInvalidPaymentKind
	}
	b, err := s.bookings.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	switch {
	case b.Status == domain.BookingCancelled:
		return nil, ErrBookingCancelled
	case b.IsPaid(kind):
		return nil, ErrAlreadyPaid
	case kind == domain.PaymentBalance && !b.DepositPaid:
		return nil, ErrDepositRequired
	}

	amount := b.AmountFor(kind)
	description := fmt.Sprintf("Booking %s %s", b.Reference, kind)
	if b.Property != nil {
		description = fmt.Sprintf("%s %s, %s to %s", b.Property.Title, kind,
			b.CheckIn.Format(domain.DateLayout), b.CheckOut.Format(domain.DateLayout))
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, IntentParams{
		Amount:       amount,
		Currency:     b.Currency,
		Description:  description,
		ReceiptEmail: b.GuestEmail,
		Metadata: map[string]string{
			metaBookingID:        strconv.FormatInt(b.ID, 10),
			metaBookingReference: b.Reference,
			metaPaymentType:      string(kind),
		},
		IdempotencyKey: fmt.Sprintf("booking-%s-%s-%d", b.Reference, kind, amount),
	})
	if err != nil {
		s.loggerf("level=error msg=payment intent failed booking_id=%d kind=%s err=%v", b.ID, kind, err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	if _, err := s.bookings.UpdatePaymentStatus(ctx, domain.SystemActor, b.ID, booking.PaymentUpdate{
		Kind:     kind,
		Paid:     false,
		IntentID: intent.ID,
	}); err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=payment intent created booking_id=%d kind=%s intent_id=%s amount=%d",
		b.ID, kind, intent.ID, amount)

	return &CreateIntentResponse{Intent: intent, BookingID: b.ID, Type: kind}, nil
}

// HandleWebhook verifies and applies one provider event. Events seen before
// are acknowledged without side effects. A returned error other than
// ErrInvalidSignature means the provider should retry.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		s.loggerf("level=warn msg=webhook signature rejected err=%v", err)
		return nil, ErrInvalidSignature
	}
	res := &WebhookResult{EventID: event.ID, Type: string(event.Type)}

	if s.dedupe != nil {
		first, err := s.dedupe.FirstSeen(ctx, event.ID)
		if err != nil {
			s.loggerf("level=warn msg=webhook dedupe unavailable event_id=%s err=%v", event.ID, err)
		} else if !first {
			s.loggerf("level=info msg=webhook duplicate skipped event_id=%s type=%s", event.ID, event.Type)
			res.Duplicate = true
			return res, nil
		}
	}

	bookingID, err := s.dispatch(ctx, event)
	if err != nil {
		if s.dedupe != nil {
			if ferr := s.dedupe.Forget(ctx, event.ID); ferr != nil {
				s.loggerf("level=warn msg=webhook dedupe forget failed event_id=%s err=%v", event.ID, ferr)
			}
		}
		return nil, err
	}
	res.BookingID = bookingID
	res.Ignored = bookingID == 0
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, event stripe.Event) (int64, error) {
	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			s.loggerf("level=error msg=webhook payload unreadable event_id=%s err=%v", event.ID, err)
			return 0, nil
		}
		var chargeID string
		if pi.LatestCharge != nil {
			chargeID = pi.LatestCharge.ID
		}
		return s.markPaid(ctx, event, pi.Metadata, pi.ID, chargeID)

	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.loggerf("level=error msg=webhook payload unreadable event_id=%s err=%v", event.ID, err)
			return 0, nil
		}
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			s.loggerf("level=info msg=checkout session not paid yet event_id=%s status=%s", event.ID, cs.PaymentStatus)
			return 0, nil
		}
		var intentID string
		if cs.PaymentIntent != nil {
			intentID = cs.PaymentIntent.ID
		}
		return s.markPaid(ctx, event, cs.Metadata, intentID, "")

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			s.loggerf("level=error msg=webhook payload unreadable event_id=%s err=%v", event.ID, err)
			return 0, nil
		}
		return s.recordRefund(ctx, event, &ch)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
			reason := ""
			if pi.LastPaymentError != nil {
				reason = pi.LastPaymentError.Msg
			}
			s.loggerf("level=warn msg=payment failed intent_id=%s booking_id=%s reason=%q",
				pi.ID, pi.Metadata[metaBookingID], reason)
		}
		return 0, nil

	default:
		s.loggerf("level=info msg=webhook event ignored event_id=%s type=%s", event.ID, event.Type)
		return 0, nil
	}
}

func (s *Service) markPaid(ctx context.Context, event stripe.Event, meta map[string]string, intentID, chargeID string) (int64, error) {
	bookingID, ok := metaBookingIDOf(meta)
	if !ok {
		s.loggerf("level=info msg=webhook event without booking event_id=%s type=%s", event.ID, event.Type)
		return 0, nil
	}
	kind := domain.PaymentKind(meta[metaPaymentType])
	if !kind.Valid() {
		s.loggerf("level=warn msg=webhook event with bad payment type event_id=%s booking_id=%d type=%q",
			event.ID, bookingID, kind)
		return 0, nil
	}

	_, err := s.bookings.UpdatePaymentStatus(ctx, domain.SystemActor, bookingID, booking.PaymentUpdate{
		Kind:     kind,
		Paid:     true,
		ChargeID: chargeID,
		IntentID: intentID,
	})
	if errors.Is(err, booking.ErrNotFound) {
		s.loggerf("level=warn msg=webhook for unknown booking event_id=%s booking_id=%d", event.ID, bookingID)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	s.loggerf("level=info msg=webhook payment applied event_id=%s booking_id=%d kind=%s", event.ID, bookingID, kind)
	return bookingID, nil
}

func (s *Service) recordRefund(ctx context.Context, event stripe.Event, ch *stripe.Charge) (int64, error) {
	bookingID, ok := metaBookingIDOf(ch.Metadata)
	if !ok && ch.PaymentIntent != nil && ch.PaymentIntent.ID != "" && s.intents != nil {
		b, err := s.intents.GetByPaymentIntent(ctx, ch.PaymentIntent.ID)
		switch {
		case err == nil:
			bookingID, ok = b.ID, true
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return 0, err
		}
	}
	if !ok {
		s.loggerf("level=info msg=refund for charge without booking event_id=%s charge_id=%s", event.ID, ch.ID)
		return 0, nil
	}

	var refunds []booking.ExternalRefund
	if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
		for _, r := range ch.Refunds.Data {
			if countsAsRefunded(string(r.Status)) {
				refunds = append(refunds, booking.ExternalRefund{ID: r.ID, Amount: r.Amount})
			}
		}
	} else {
		listed, err := s.gateway.ChargeRefunds(ctx, ch.ID)
		if err != nil {
			return 0, fmt.Errorf("%w: list refunds for %s: %v", ErrProvider, ch.ID, err)
		}
		for _, r := range listed {
			if countsAsRefunded(r.Status) {
				refunds = append(refunds, booking.ExternalRefund{ID: r.ID, Amount: r.Amount})
			}
		}
	}

	_, err := s.bookings.RecordExternalRefund(ctx, bookingID, refunds)
	if errors.Is(err, booking.ErrNotFound) {
		s.loggerf("level=warn msg=webhook for unknown booking event_id=%s booking_id=%d", event.ID, bookingID)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bookingID, nil
}

func countsAsRefunded(status string) bool {
	return status != string(stripe.RefundStatusFailed) && status != string(stripe.RefundStatusCanceled)
}

func metaBookingIDOf(meta map[string]string) (int64, bool) {
	raw, ok := meta[metaBookingID]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
