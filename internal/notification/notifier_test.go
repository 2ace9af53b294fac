package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/config"
	"villabook/internal/domain"
)

type captureMailer struct {
	sent []Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func fixture() (*domain.Booking, *domain.Property) {
	in, _ := domain.ParseDate("2026-07-03")
	out, _ := domain.ParseDate("2026-07-06")
	return &domain.Booking{
			Reference:     "3f1c",
			GuestName:     "Ana",
			GuestEmail:    "ana@example.com",
			CheckIn:       in,
			CheckOut:      out,
			Nights:        3,
			Guests:        2,
			TotalAmount:   61050,
			DepositAmount: 15263,
			BalanceAmount: 45787,
			Currency:      "eur",
		}, &domain.Property{
			Title: "Casa Azul",
		}
}

func TestNotifier_BookingReceived(t *testing.T) {
	m := &captureMailer{}
	n := NewNotifier(m)
	b, p := fixture()

	n.BookingReceived(context.Background(), b, p)

	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, m.sent[0].To)
	assert.Equal(t, "Booking request received: Casa Azul", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].Body, "from 2026-07-03 to 2026-07-06 (3 nights, 2 guests)")
	assert.Contains(t, m.sent[0].Body, "Deposit due now: EUR 152.63")
}

func TestNotifier_CancelledMentionsRefund(t *testing.T) {
	m := &captureMailer{}
	n := NewNotifier(m)
	b, p := fixture()
	b.CancellationReason = "owner unavailable"

	n.BookingCancelled(context.Background(), b, p, 15263)
	n.BookingCancelled(context.Background(), b, p, 0)

	require.Len(t, m.sent, 2)
	assert.Contains(t, m.sent[0].Body, "Reason: owner unavailable")
	assert.Contains(t, m.sent[0].Body, "A refund of EUR 152.63 has been issued.")
	assert.NotContains(t, m.sent[1].Body, "refund")
}

func TestNotifier_PropertyReviewed(t *testing.T) {
	m := &captureMailer{}
	n := NewNotifier(m)
	owner := &domain.User{Name: "Olga", Email: "olga@example.com"}

	n.PropertyReviewed(context.Background(), &domain.Property{Title: "Loft", Approval: domain.ApprovalApproved}, owner)
	n.PropertyReviewed(context.Background(), &domain.Property{Title: "Loft", Approval: domain.ApprovalRejected, RejectionReason: "blurry photos"}, owner)

	require.Len(t, m.sent, 2)
	assert.Equal(t, "Loft was approved", m.sent[0].Subject)
	assert.Contains(t, m.sent[1].Body, "Reason: blurry photos")
}

func TestNotifier_SwallowsSendErrors(t *testing.T) {
	var logged []string
	m := &captureMailer{err: errors.New("smtp down")}
	n := NewNotifier(m)
	n.loggerf = func(format string, args ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}
	b, p := fixture()

	assert.NotPanics(t, func() { n.BookingConfirmed(context.Background(), b, p) })
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "smtp down")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "USD 0.05", FormatMoney(5, "usd"))
	assert.Equal(t, "USD 1234.50", FormatMoney(123450, "usd"))
	assert.Equal(t, "EUR -1.00", FormatMoney(-100, "eur"))
}

func TestSMTPMailer_BuildMsg(t *testing.T) {
	m, err := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "bookings@example.com", FromName: "Villabook"})
	require.NoError(t, err)

	msg, err := m.buildMsg(Message{To: []string{"ana@example.com"}, Subject: "Hi", Body: "Body"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi"}, msg.GetGenHeader("Subject"))

	_, err = m.buildMsg(Message{To: []string{"not-an-address"}, Subject: "Hi"})
	assert.Error(t, err)
}

func TestNewMailer_FallsBackToLog(t *testing.T) {
	assert.IsType(t, LogMailer{}, NewMailer(config.SMTPConfig{}))
}
