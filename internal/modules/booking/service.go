package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"villabook/internal/domain"
	"villabook/internal/events"
	"villabook/internal/repository"
)

const (
	maxAvailabilityDays = 366
	reminderCooldown    = 7 * 24 * time.Hour
)

type Service struct {
	bookings   BookingRepository
	properties PropertyRepository
	users      UserRepository
	notifier   Notifier
	publisher  events.Publisher
	refunder   Refunder

	now     func() time.Time
	loggerf func(format string, args ...interface{})
}

func NewService(
	bookings BookingRepository,
	properties PropertyRepository,
	users UserRepository,
	notifier Notifier,
	publisher events.Publisher,
	refunder Refunder,
) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		bookings:   bookings,
		properties: properties,
		users:      users,
		notifier:   notifier,
		publisher:  publisher,
		refunder:   refunder,
		now:        time.Now,
		loggerf:    log.Printf,
	}
}

// ResolveProperty accepts a numeric id or a slug.
func (s *Service) ResolveProperty(ctx context.Context, idOrSlug string) (*domain.Property, error) {
	var (
		p   *domain.Property
		err error
	)
	if id, convErr := strconv.ParseInt(idOrSlug, 10, 64); convErr == nil {
		p, err = s.properties.GetByID(ctx, id)
	} else {
		p, err = s.properties.GetBySlug(ctx, idOrSlug)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPropertyNotFound
	}
	return p, err
}

func (s *Service) bookableProperty(ctx context.Context, idOrSlug string) (*domain.Property, error) {
	p, err := s.ResolveProperty(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !p.IsBookable() {
		return nil, ErrPropertyNotBookable
	}
	return p, nil
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := domain.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: check_in must be YYYY-MM-DD", ErrInvalidBookingWindow)
	}
	out, err := domain.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: check_out must be YYYY-MM-DD", ErrInvalidBookingWindow)
	}
	return in, out, nil
}

func (s *Service) Quote(ctx context.Context, propertyRef string, q QuoteQuery) (*Quote, error) {
	p, err := s.bookableProperty(ctx, propertyRef)
	if err != nil {
		return nil, err
	}
	in, out, err := parseStay(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	guests := q.Guests
	if guests == 0 {
		guests = 1
	}
	return CalculateQuote(p, in, out, guests, s.now())
}

// Availability lists busy ranges. Listings that are not bookable are only
// visible to their owner and staff.
func (s *Service) Availability(ctx context.Context, actor domain.Actor, propertyRef string, q AvailabilityQuery) ([]BusyRange, error) {
	p, err := s.ResolveProperty(ctx, propertyRef)
	if err != nil {
		return nil, err
	}
	if !p.IsBookable() && !canManage(actor, p) {
		return nil, ErrPropertyNotFound
	}
	from, to, err := parseStay(q.From, q.To)
	if err != nil {
		return nil, err
	}
	if !to.After(from) || domain.NightsBetween(from, to) > maxAvailabilityDays {
		return nil, fmt.Errorf("%w: range must be 1 to %d days", ErrInvalidBookingWindow, maxAvailabilityDays)
	}

	rows, err := s.bookings.ActiveInRange(ctx, p.ID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]BusyRange, 0, len(rows))
	for _, b := range rows {
		out = append(out, BusyRange{
			CheckIn:  b.CheckIn.Format(domain.DateLayout),
			CheckOut: b.CheckOut.Format(domain.DateLayout),
			Status:   b.Status,
		})
	}
	return out, nil
}

func (s *Service) CreateBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if actor.UserID == 0 {
		return nil, ErrForbidden
	}
	in, out, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	p, err := s.bookableProperty(ctx, strconv.FormatInt(req.PropertyID, 10))
	if err != nil {
		return nil, err
	}

	quote, err := CalculateQuote(p, in, out, req.Guests, s.now())
	if err != nil {
		return nil, err
	}

	guest, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("load guest: %w", err)
	}
	name := firstNonEmpty(req.GuestName, guest.Name)
	email := firstNonEmpty(req.GuestEmail, guest.Email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: guest name and email are required", ErrValidation)
	}

	guestID := actor.UserID
	b := &domain.Booking{
		Reference:       uuid.NewString(),
		PropertyID:      p.ID,
		GuestID:         &guestID,
		GuestName:       name,
		GuestEmail:      strings.ToLower(email),
		GuestPhone:      firstNonEmpty(req.GuestPhone, guest.Phone),
		CheckIn:         in,
		CheckOut:        out,
		Guests:          req.Guests,
		Nights:          quote.Nights,
		NightlyRate:     quote.NightlyRate,
		Discount:        quote.Discount,
		CleaningFee:     quote.CleaningFee,
		TotalAmount:     quote.Total,
		DepositAmount:   quote.Deposit,
		BalanceAmount:   quote.Balance,
		Currency:        quote.Currency,
		Status:          domain.BookingPending,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
	}

	if err := s.bookings.CreateIfAvailable(ctx, b); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			return nil, ErrBookingConflict
		}
		return nil, err
	}

	s.loggerf("level=info msg=booking created booking_id=%d reference=%s property_id=%d nights=%d total=%d",
		b.ID, b.Reference, b.PropertyID, b.Nights, b.TotalAmount)

	s.notifier.BookingReceived(ctx, b, p)
	if owner, err := s.users.GetByID(ctx, p.OwnerID); err == nil {
		s.notifier.OwnerNewBooking(ctx, b, p, owner)
	} else {
		s.loggerf("level=warn msg=owner lookup failed property_id=%d err=%v", p.ID, err)
	}
	s.publish(ctx, events.BookingCreated, b)

	b.Property = p
	return b, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// load fetches a booking and its property.
func (s *Service) load(ctx context.Context, id int64) (*domain.Booking, *domain.Property, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	p, err := s.properties.GetByID(ctx, b.PropertyID)
	if err != nil {
		return nil, nil, fmt.Errorf("load property %d: %w", b.PropertyID, err)
	}
	return b, p, nil
}

func canView(actor domain.Actor, b *domain.Booking, p *domain.Property) bool {
	return actor.Privileged() || b.BelongsToGuest(actor.UserID) || p.OwnedBy(actor.UserID)
}

// canManage covers admins, the system and the owner of the booked property.
func canManage(actor domain.Actor, p *domain.Property) bool {
	return actor.Privileged() || (actor.Role == domain.RoleOwner && p.OwnedBy(actor.UserID))
}

func (s *Service) GetBooking(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, b, p) {
		return nil, ErrForbidden
	}
	b.Property = p
	return b, nil
}

func toFilter(q ListQuery) repository.BookingFilter {
	return repository.BookingFilter{Status: q.Status, Page: q.Page, Limit: q.Limit}
}

func (s *Service) ListGuestBookings(ctx context.Context, actor domain.Actor, q ListQuery) ([]domain.Booking, int64, error) {
	return s.bookings.ListByGuest(ctx, actor.UserID, toFilter(q))
}

func (s *Service) ListOwnerBookings(ctx context.Context, actor domain.Actor, q ListQuery) ([]domain.Booking, int64, error) {
	return s.bookings.ListByOwner(ctx, actor.UserID, toFilter(q))
}

func (s *Service) ListAllBookings(ctx context.Context, q ListQuery) ([]domain.Booking, int64, error) {
	return s.bookings.ListAll(ctx, toFilter(q))
}

// UpdateStatus dispatches to the transition matching the requested status.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id int64, req UpdateStatusRequest) (*domain.Booking, error) {
	switch req.Status {
	case domain.BookingConfirmed:
		return s.Confirm(ctx, actor, id)
	case domain.BookingCompleted:
		return s.Complete(ctx, actor, id)
	case domain.BookingCancelled:
		return s.Cancel(ctx, actor, id, req.Reason)
	default:
		return nil, fmt.Errorf("%w: unsupported target status %q", ErrInvalidTransition, req.Status)
	}
}

func (s *Service) Confirm(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, ErrForbidden
	}
	b, err = s.transition(ctx, b, domain.BookingConfirmed, map[string]interface{}{"confirmed_at": s.now().UTC()})
	if err != nil {
		return nil, err
	}
	s.notifier.BookingConfirmed(ctx, b, p)
	s.publish(ctx, events.BookingConfirmed, b)
	return b, nil
}

func (s *Service) Complete(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, ErrForbidden
	}
	b, err = s.transition(ctx, b, domain.BookingCompleted, map[string]interface{}{"completed_at": s.now().UTC()})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.BookingCompleted, b)
	return b, nil
}

// Cancel is open to staff, and to the guest while the booking is still pending.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.Booking, error) {
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		if !b.BelongsToGuest(actor.UserID) {
			return nil, ErrForbidden
		}
		if b.Status != domain.BookingPending {
			return nil, fmt.Errorf("%w: guests can only cancel pending bookings", ErrForbidden)
		}
	}
	b, err = s.cancel(ctx, b, p, reason)
	if err != nil {
		return nil, err
	}
	s.notifier.BookingCancelled(ctx, b, p, 0)
	return b, nil
}

func (s *Service) cancel(ctx context.Context, b *domain.Booking, p *domain.Property, reason string) (*domain.Booking, error) {
	b, err := s.transition(ctx, b, domain.BookingCancelled, map[string]interface{}{
		"cancelled_at":        s.now().UTC(),
		"cancellation_reason": strings.TrimSpace(reason),
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.BookingCancelled, b)
	return b, nil
}

// transition validates the move against the allowed set and writes it with a
// guarded update so a concurrent change is reported instead of overwritten.
func (s *Service) transition(ctx context.Context, b *domain.Booking, to domain.BookingStatus, fields map[string]interface{}) (*domain.Booking, error) {
	if !domain.CanTransition(b.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	if err := s.bookings.TransitionStatus(ctx, b.ID, b.Status, to, fields); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrStatusChanged
		}
		return nil, err
	}
	s.loggerf("level=info msg=booking status changed booking_id=%d from=%s to=%s", b.ID, b.Status, to)
	return s.bookings.GetByID(ctx, b.ID)
}

// UpdatePaymentStatus toggles the deposit or balance flag. Marking the deposit
// paid on a pending booking also confirms it.
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor domain.Actor, id int64, upd PaymentUpdate) (*domain.Booking, error) {
	if !upd.Kind.Valid() {
		return nil, ErrInvalidPaymentKind
	}
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, ErrForbidden
	}

	fields := map[string]interface{}{}
	if upd.ChargeID != "" && (b.StripeChargeID == nil || *b.StripeChargeID != upd.ChargeID) {
		fields["stripe_charge_id"] = upd.ChargeID
	}
	if upd.IntentID != "" && b.IntentFor(upd.Kind) != upd.IntentID {
		fields["stripe_"+string(upd.Kind)+"_intent_id"] = upd.IntentID
	}

	changed := b.IsPaid(upd.Kind) != upd.Paid
	if changed {
		if !upd.Paid {
			after := b.AmountPaid() - b.AmountFor(upd.Kind)
			if b.RefundedAmount > after {
				return nil, ErrPaymentRefunded
			}
		}
		var paidAt interface{}
		if upd.Paid {
			paidAt = s.now().UTC()
		}
		fields[string(upd.Kind)+"_paid"] = upd.Paid
		fields[string(upd.Kind)+"_paid_at"] = paidAt
	}

	if len(fields) == 0 {
		b.Property = p
		return b, nil
	}
	if err := s.bookings.Update(ctx, b.ID, fields); err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=booking payment updated booking_id=%d kind=%s paid=%t actor_role=%s",
		b.ID, upd.Kind, upd.Paid, actor.Role)

	if b, err = s.bookings.GetByID(ctx, b.ID); err != nil {
		return nil, err
	}
	if !changed {
		b.Property = p
		return b, nil
	}

	s.publish(ctx, events.BookingPaymentUpdated, b)
	if upd.Paid {
		s.notifier.PaymentReceived(ctx, b, p, upd.Kind)
	}

	if upd.Kind == domain.PaymentDeposit && upd.Paid && b.Status == domain.BookingPending {
		confirmed, err := s.transition(ctx, b, domain.BookingConfirmed, map[string]interface{}{"confirmed_at": s.now().UTC()})
		switch {
		case err == nil:
			b = confirmed
			s.notifier.BookingConfirmed(ctx, b, p)
			s.publish(ctx, events.BookingConfirmed, b)
		case errors.Is(err, ErrStatusChanged):
			s.loggerf("level=warn msg=auto confirm skipped, status changed booking_id=%d", b.ID)
		default:
			return nil, err
		}
	}

	b.Property = p
	return b, nil
}

func (s *Service) RefundQuote(ctx context.Context, actor domain.Actor, id int64, req RefundRequest) (*RefundPlan, error) {
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, ErrForbidden
	}
	return CalculateRefund(b, req)
}

// Refund executes a refund plan: optional Stripe refunds per payment intent,
// then the refund is recorded and the booking cancelled when required.
func (s *Service) Refund(ctx context.Context, actor domain.Actor, id int64, req RefundRequest) (*RefundResult, error) {
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, ErrForbidden
	}

	plan, err := CalculateRefund(b, req)
	if err != nil {
		return nil, err
	}
	wantCancel := plan.ForcesCancel || req.Cancel
	if wantCancel && b.Status != domain.BookingCancelled && !domain.CanTransition(b.Status, domain.BookingCancelled) {
		if plan.ForcesCancel {
			return nil, fmt.Errorf("%w: a full refund cancels the booking, which is not possible from %s", ErrInvalidTransition, b.Status)
		}
		wantCancel = false
	}

	if req.Stripe && s.refunder == nil && plan.HasProviderPortion() {
		return nil, ErrPaymentsDisabled
	}

	result := &RefundResult{Plan: plan}
	var providerErr error
	for _, portion := range plan.Portions {
		if req.Stripe && s.refunder != nil && portion.PaymentIntentID != "" {
			refundID, err := s.refunder.Refund(ctx, portion.PaymentIntentID, portion.Amount)
			if err != nil {
				providerErr = fmt.Errorf("%w: %v", ErrRefundFailed, err)
				break
			}
			result.RefundIDs = append(result.RefundIDs, refundID)
		}
		result.Refunded += portion.Amount
	}

	if result.Refunded > 0 {
		fields := map[string]interface{}{
			"refunded_amount": b.RefundedAmount + result.Refunded,
			"refunded_at":     s.now().UTC(),
		}
		if len(result.RefundIDs) > 0 {
			fields["stripe_refund_id"] = b.RefundIDsWith(result.RefundIDs...)
		}
		if err := s.bookings.Update(ctx, b.ID, fields); err != nil {
			return nil, err
		}
		s.loggerf("level=info msg=booking refunded booking_id=%d amount=%d stripe_refunds=%d",
			b.ID, result.Refunded, len(result.RefundIDs))
	}
	if providerErr != nil {
		return nil, providerErr
	}

	if b, err = s.bookings.GetByID(ctx, b.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, events.BookingRefunded, b)

	if wantCancel && b.Status != domain.BookingCancelled {
		reason := firstNonEmpty(req.Reason, "refunded")
		if b, err = s.cancel(ctx, b, p, reason); err != nil {
			return nil, err
		}
		result.Cancelled = true
		s.notifier.BookingCancelled(ctx, b, p, result.Refunded)
	} else {
		s.notifier.RefundIssued(ctx, b, p, result.Refunded)
	}

	b.Property = p
	result.Booking = b
	return result, nil
}

// RecordExternalRefund stores refunds that happened at the payment provider,
// skipping refund ids that are already recorded.
func (s *Service) RecordExternalRefund(ctx context.Context, id int64, refunds []ExternalRefund) (*domain.Booking, error) {
	b, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		fresh  []string
		amount int64
	)
	for _, r := range refunds {
		if r.ID != "" {
			if b.HasRefundID(r.ID) || slices.Contains(fresh, r.ID) {
				continue
			}
			fresh = append(fresh, r.ID)
		}
		amount += r.Amount
	}

	amount = min(amount, b.Refundable())
	if amount <= 0 {
		return b, nil
	}

	fields := map[string]interface{}{
		"refunded_amount": b.RefundedAmount + amount,
		"refunded_at":     s.now().UTC(),
	}
	if len(fresh) > 0 {
		fields["stripe_refund_id"] = b.RefundIDsWith(fresh...)
	}
	if err := s.bookings.Update(ctx, b.ID, fields); err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=external refund recorded booking_id=%d amount=%d", b.ID, amount)

	if b, err = s.bookings.GetByID(ctx, b.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, events.BookingRefunded, b)

	if b.Refundable() == 0 && domain.CanTransition(b.Status, domain.BookingCancelled) {
		if b, err = s.cancel(ctx, b, p, "refunded at payment provider"); err != nil {
			return nil, err
		}
		s.notifier.BookingCancelled(ctx, b, p, amount)
		return b, nil
	}
	s.notifier.RefundIssued(ctx, b, p, amount)
	return b, nil
}

func (s *Service) UpdateAdminNotes(ctx context.Context, id int64, notes string) (*domain.Booking, error) {
	if _, err := s.bookings.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.bookings.Update(ctx, id, map[string]interface{}{"admin_notes": strings.TrimSpace(notes)}); err != nil {
		return nil, err
	}
	return s.bookings.GetByID(ctx, id)
}

// CompleteFinishedStays completes confirmed bookings whose check-out day has passed.
func (s *Service) CompleteFinishedStays(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.bookings.FinishedConfirmed(ctx, domain.DateOf(now))
	if err != nil {
		return 0, err
	}
	done := 0
	for i := range rows {
		b, err := s.transition(ctx, &rows[i], domain.BookingCompleted, map[string]interface{}{"completed_at": now.UTC()})
		if err != nil {
			s.loggerf("level=warn msg=auto complete failed booking_id=%d err=%v", rows[i].ID, err)
			continue
		}
		s.publish(ctx, events.BookingCompleted, b)
		done++
	}
	return done, nil
}

// SendBalanceReminders emails guests with an open balance checking in within
// the next days, at most once per cooldown period.
func (s *Service) SendBalanceReminders(ctx context.Context, now time.Time, days int) (int, error) {
	today := domain.DateOf(now)
	rows, err := s.bookings.BalanceDue(ctx, today, today.AddDate(0, 0, days))
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range rows {
		b := &rows[i]
		if b.BalanceReminderAt != nil && now.Sub(*b.BalanceReminderAt) < reminderCooldown {
			continue
		}
		p, err := s.properties.GetByID(ctx, b.PropertyID)
		if err != nil {
			s.loggerf("level=warn msg=reminder property lookup failed booking_id=%d err=%v", b.ID, err)
			continue
		}
		s.notifier.BalanceReminder(ctx, b, p)
		if err := s.bookings.Update(ctx, b.ID, map[string]interface{}{"balance_reminder_at": now.UTC()}); err != nil {
			s.loggerf("level=warn msg=reminder stamp failed booking_id=%d err=%v", b.ID, err)
		}
		sent++
	}
	return sent, nil
}

func (s *Service) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if err := s.publisher.Publish(ctx, events.NewBookingEvent(eventType, b)); err != nil {
		s.loggerf("level=warn msg=event publish failed type=%s booking_id=%d err=%v", eventType, b.ID, err)
	}
}
