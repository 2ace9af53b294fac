package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"villabook/internal/cache"
	"villabook/internal/config"
	"villabook/internal/database"
	"villabook/internal/domain"
	"villabook/internal/modules/booking"
	"villabook/internal/notification"
	"villabook/internal/repository"
)

const testWebhookSecret = "whsec_test_secret"

// fakeGateway verifies signatures with the real Stripe code and mocks the API calls.
type fakeGateway struct {
	*StripeGateway
	mock.Mock
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	args := g.Called(p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Intent), args.Error(1)
}

func (g *fakeGateway) Refund(ctx context.Context, paymentIntentID string, amount int64) (string, error) {
	args := g.Called(paymentIntentID, amount)
	return args.String(0), args.Error(1)
}

func (g *fakeGateway) ChargeRefunds(ctx context.Context, chargeID string) ([]ProviderRefund, error) {
	args := g.Called(chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ProviderRefund), args.Error(1)
}

type paymentFixture struct {
	svc      *Service
	bookings *booking.Service
	gateway  *fakeGateway
	guest    *domain.User
	stranger *domain.User
	booking  *domain.Booking
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:payment_%s?mode=memory&cache=shared", name),
		database.Options{MaxOpenConns: 1, Quiet: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	users := repository.NewUserRepository(db)
	properties := repository.NewPropertyRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	owner := &domain.User{Email: "owner@example.com", PasswordHash: "x", Name: "Owner", Role: domain.RoleOwner}
	guest := &domain.User{Email: "guest@example.com", PasswordHash: "x", Name: "Guest", Role: domain.RoleGuest}
	stranger := &domain.User{Email: "stranger@example.com", PasswordHash: "x", Name: "Stranger", Role: domain.RoleGuest}
	for _, u := range []*domain.User{owner, guest, stranger} {
		require.NoError(t, users.Create(ctx, u))
	}
	p := &domain.Property{
		OwnerID:   owner.ID,
		Title:     "Olive Grove",
		Slug:      "olive-grove",
		MaxGuests: 4,
		RateCard:  domain.RateCard{Currency: "usd", NightlyRate: 10000, MinNights: 1},
		Status:    domain.PropertyPublished,
		Approval:  domain.ApprovalApproved,
	}
	require.NoError(t, properties.Create(ctx, p))

	gw := &fakeGateway{StripeGateway: NewStripeGateway(config.StripeConfig{
		SecretKey:     "sk_test_dummy",
		WebhookSecret: testWebhookSecret,
	})}
	bookingSvc := booking.NewService(bookingRepo, properties, users,
		notification.NewNotifier(notification.LogMailer{}), nil, gw)

	checkIn := time.Now().UTC().AddDate(0, 2, 0)
	b, err := bookingSvc.CreateBooking(ctx, domain.Actor{UserID: guest.ID, Role: domain.RoleGuest}, booking.CreateBookingRequest{
		PropertyID: p.ID,
		CheckIn:    checkIn.Format(domain.DateLayout),
		CheckOut:   checkIn.AddDate(0, 0, 2).Format(domain.DateLayout),
		Guests:     2,
	})
	require.NoError(t, err)

	return &paymentFixture{
		svc:      NewService(gw, bookingSvc, bookingRepo, cache.NewMemoryDeduper(time.Hour), t.Logf),
		bookings: bookingSvc,
		gateway:  gw,
		guest:    guest,
		stranger: stranger,
		booking:  b,
	}
}

func (f *paymentFixture) guestActor() domain.Actor {
	return domain.Actor{UserID: f.guest.ID, Role: domain.RoleGuest}
}

func (f *paymentFixture) reload(t *testing.T) *domain.Booking {
	t.Helper()
	b, err := f.bookings.GetBooking(context.Background(), domain.SystemActor, f.booking.ID)
	require.NoError(t, err)
	return b
}

func signedEvent(t *testing.T, id, eventType string, object map[string]interface{}) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":     id,
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: raw, Secret: testWebhookSecret})
	return signed.Payload, signed.Header
}

func succeededIntent(bookingID int64, kind domain.PaymentKind, intentID string) map[string]interface{} {
	return map[string]interface{}{
		"id":            intentID,
		"object":        "payment_intent",
		"status":        "succeeded",
		"latest_charge": "ch_" + intentID,
		"metadata": map[string]string{
			"booking_id":   fmt.Sprint(bookingID),
			"payment_type": string(kind),
		},
	}
}

func TestCreatePaymentIntent_Deposit(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	f.gateway.On("CreatePaymentIntent", mock.MatchedBy(func(p IntentParams) bool {
		return p.Amount == 5000 &&
			p.Currency == "usd" &&
			p.Metadata["booking_id"] == fmt.Sprint(f.booking.ID) &&
			p.Metadata["booking_reference"] == f.booking.Reference &&
			p.Metadata["payment_type"] == "deposit" &&
			p.IdempotencyKey != ""
	})).Return(&Intent{ID: "pi_dep", ClientSecret: "pi_dep_secret", Amount: 5000, Currency: "usd"}, nil).Once()

	resp, err := f.svc.CreatePaymentIntent(ctx, f.guestActor(), f.booking.ID, domain.PaymentDeposit)
	require.NoError(t, err)
	assert.Equal(t, "pi_dep_secret", resp.ClientSecret)
	assert.Equal(t, domain.PaymentDeposit, resp.Type)

	b := f.reload(t)
	assert.Equal(t, "pi_dep", b.IntentFor(domain.PaymentDeposit))
	assert.False(t, b.DepositPaid)
	f.gateway.AssertExpectations(t)
}

func TestCreatePaymentIntent_Rejections(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePaymentIntent(ctx, f.guestActor(), f.booking.ID, domain.PaymentBalance)
	assert.ErrorIs(t, err, ErrDepositRequired)

	_, err = f.svc.CreatePaymentIntent(ctx, domain.Actor{UserID: f.stranger.ID, Role: domain.RoleGuest}, f.booking.ID, domain.PaymentDeposit)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = f.bookings.UpdatePaymentStatus(ctx, domain.SystemActor, f.booking.ID, booking.PaymentUpdate{Kind: domain.PaymentDeposit, Paid: true})
	require.NoError(t, err)
	_, err = f.svc.CreatePaymentIntent(ctx, f.guestActor(), f.booking.ID, domain.PaymentDeposit)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	_, err = f.bookings.Cancel(ctx, domain.SystemActor, f.booking.ID, "test")
	require.NoError(t, err)
	_, err = f.svc.CreatePaymentIntent(ctx, f.guestActor(), f.booking.ID, domain.PaymentBalance)
	assert.ErrorIs(t, err, ErrBookingCancelled)

	f.gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything)
}

func TestCreatePaymentIntent_ProviderError(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.On("CreatePaymentIntent", mock.Anything).Return(nil, errors.New("api down")).Once()

	_, err := f.svc.CreatePaymentIntent(context.Background(), f.guestActor(), f.booking.ID, domain.PaymentDeposit)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestCreatePaymentIntent_Disabled(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil)
	_, err := svc.CreatePaymentIntent(context.Background(), domain.SystemActor, 1, domain.PaymentDeposit)
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestHandleWebhook_PaymentSucceededIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_paid", "payment_intent.succeeded",
		succeededIntent(f.booking.ID, domain.PaymentDeposit, "pi_dep"))

	res, err := f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, f.booking.ID, res.BookingID)
	assert.False(t, res.Duplicate)

	b := f.reload(t)
	assert.True(t, b.DepositPaid)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	require.NotNil(t, b.StripeChargeID)
	assert.Equal(t, "ch_pi_dep", *b.StripeChargeID)

	res, err = f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
}

func TestHandleWebhook_CheckoutSessionCompleted(t *testing.T) {
	f := newPaymentFixture(t)

	payload, sig := signedEvent(t, "evt_cs", "checkout.session.completed", map[string]interface{}{
		"id":             "cs_1",
		"object":         "checkout.session",
		"payment_status": "paid",
		"payment_intent": "pi_cs",
		"metadata": map[string]string{
			"booking_id":   fmt.Sprint(f.booking.ID),
			"payment_type": "deposit",
		},
	})
	_, err := f.svc.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)

	b := f.reload(t)
	assert.True(t, b.DepositPaid)
	assert.Equal(t, "pi_cs", b.IntentFor(domain.PaymentDeposit))
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	f := newPaymentFixture(t)

	payload, _ := signedEvent(t, "evt_x", "payment_intent.succeeded",
		succeededIntent(f.booking.ID, domain.PaymentDeposit, "pi_dep"))
	_, err := f.svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.False(t, f.reload(t).DepositPaid)
}

func TestHandleWebhook_NoBookingOrUnknownBooking(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_nometa", "payment_intent.succeeded", map[string]interface{}{
		"id": "pi_other", "object": "payment_intent", "metadata": map[string]string{},
	})
	res, err := f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.True(t, res.Ignored)

	payload, sig = signedEvent(t, "evt_unknown", "payment_intent.succeeded",
		succeededIntent(424242, domain.PaymentDeposit, "pi_ghost"))
	res, err = f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.True(t, res.Ignored)

	payload, sig = signedEvent(t, "evt_failed", "payment_intent.payment_failed", map[string]interface{}{
		"id": "pi_dep", "object": "payment_intent",
		"last_payment_error": map[string]string{"message": "card declined"},
	})
	res, err = f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.True(t, res.Ignored)
}

func TestHandleWebhook_ChargeRefunded(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_paid", "payment_intent.succeeded",
		succeededIntent(f.booking.ID, domain.PaymentDeposit, "pi_dep"))
	_, err := f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)

	refund := map[string]interface{}{
		"id":              "ch_pi_dep",
		"object":          "charge",
		"payment_intent":  "pi_dep",
		"amount_refunded": 2000,
		"refunds": map[string]interface{}{
			"object": "list",
			"data": []map[string]interface{}{
				{"id": "re_1", "object": "refund", "amount": 2000, "status": "succeeded"},
			},
		},
	}
	payload, sig = signedEvent(t, "evt_refund_1", "charge.refunded", refund)
	res, err := f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, f.booking.ID, res.BookingID)
	assert.Equal(t, int64(2000), f.reload(t).RefundedAmount)

	// A second delivery under a new event id carries the same refund.
	payload, sig = signedEvent(t, "evt_refund_2", "charge.refunded", refund)
	_, err = f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	b := f.reload(t)
	assert.Equal(t, int64(2000), b.RefundedAmount)
	assert.True(t, b.HasRefundID("re_1"))
}

func TestHandleWebhook_ChargeRefundedListsRefunds(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.bookings.UpdatePaymentStatus(ctx, domain.SystemActor, f.booking.ID,
		booking.PaymentUpdate{Kind: domain.PaymentDeposit, Paid: true, IntentID: "pi_dep"})
	require.NoError(t, err)

	f.gateway.On("ChargeRefunds", "ch_9").Return([]ProviderRefund{
		{ID: "re_a", Amount: 5000, Status: "succeeded"},
		{ID: "re_b", Amount: 5000, Status: "failed"},
	}, nil).Once()

	payload, sig := signedEvent(t, "evt_refund", "charge.refunded", map[string]interface{}{
		"id": "ch_9", "object": "charge", "payment_intent": "pi_dep", "amount_refunded": 5000,
	})
	_, err = f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)

	b := f.reload(t)
	assert.Equal(t, int64(5000), b.RefundedAmount)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	f.gateway.AssertExpectations(t)
}

func TestHandleWebhook_ProviderErrorAllowsRetry(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.bookings.UpdatePaymentStatus(ctx, domain.SystemActor, f.booking.ID,
		booking.PaymentUpdate{Kind: domain.PaymentDeposit, Paid: true, IntentID: "pi_dep"})
	require.NoError(t, err)

	f.gateway.On("ChargeRefunds", "ch_9").Return(nil, errors.New("timeout")).Once()
	f.gateway.On("ChargeRefunds", "ch_9").Return([]ProviderRefund{{ID: "re_a", Amount: 1000, Status: "succeeded"}}, nil).Once()

	payload, sig := signedEvent(t, "evt_retry", "charge.refunded", map[string]interface{}{
		"id": "ch_9", "object": "charge", "payment_intent": "pi_dep",
	})
	_, err = f.svc.HandleWebhook(ctx, payload, sig)
	assert.ErrorIs(t, err, ErrProvider)

	res, err := f.svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, int64(1000), f.reload(t).RefundedAmount)
}
