package notification

import (
	"context"
	"log"

	"villabook/internal/domain"
)

type Notifier struct {
	mailer  Mailer
	loggerf func(format string, args ...interface{})
}

func NewNotifier(mailer Mailer) *Notifier {
	return &Notifier{mailer: mailer, loggerf: log.Printf}
}

type emailData struct {
	Recipient string
	Booking   *domain.Booking
	Property  *domain.Property
	CheckIn   string
	CheckOut  string
	Kind      domain.PaymentKind
	Amount    int64
}

func bookingData(b *domain.Booking, p *domain.Property) emailData {
	if p == nil {
		p = &domain.Property{Title: "your rental"}
	}
	return emailData{
		Booking:  b,
		Property: p,
		CheckIn:  b.CheckIn.Format(domain.DateLayout),
		CheckOut: b.CheckOut.Format(domain.DateLayout),
	}
}

// send renders and delivers one email. Errors are logged and dropped.
func (n *Notifier) send(ctx context.Context, tpl, to string, data emailData) {
	if n == nil || to == "" {
		return
	}
	subject, body, err := render(tpl, data)
	if err != nil {
		n.loggerf("level=error msg=email render failed template=%s err=%v", tpl, err)
		return
	}
	if err := n.mailer.Send(ctx, Message{To: []string{to}, Subject: subject, Body: body}); err != nil {
		n.loggerf("level=error msg=email send failed template=%s to=%s err=%v", tpl, to, err)
	}
}

func (n *Notifier) BookingReceived(ctx context.Context, b *domain.Booking, p *domain.Property) {
	n.send(ctx, tplBookingReceived, b.GuestEmail, bookingData(b, p))
}

func (n *Notifier) OwnerNewBooking(ctx context.Context, b *domain.Booking, p *domain.Property, owner *domain.User) {
	if owner == nil {
		return
	}
	data := bookingData(b, p)
	data.Recipient = owner.Name
	n.send(ctx, tplOwnerNewBooking, owner.Email, data)
}

func (n *Notifier) BookingConfirmed(ctx context.Context, b *domain.Booking, p *domain.Property) {
	n.send(ctx, tplBookingConfirmed, b.GuestEmail, bookingData(b, p))
}

func (n *Notifier) BookingCancelled(ctx context.Context, b *domain.Booking, p *domain.Property, refunded int64) {
	data := bookingData(b, p)
	data.Amount = refunded
	n.send(ctx, tplBookingCancelled, b.GuestEmail, data)
}

func (n *Notifier) PaymentReceived(ctx context.Context, b *domain.Booking, p *domain.Property, kind domain.PaymentKind) {
	data := bookingData(b, p)
	data.Kind = kind
	data.Amount = b.AmountFor(kind)
	n.send(ctx, tplPaymentReceived, b.GuestEmail, data)
}

func (n *Notifier) RefundIssued(ctx context.Context, b *domain.Booking, p *domain.Property, amount int64) {
	data := bookingData(b, p)
	data.Amount = amount
	n.send(ctx, tplRefundIssued, b.GuestEmail, data)
}

func (n *Notifier) BalanceReminder(ctx context.Context, b *domain.Booking, p *domain.Property) {
	n.send(ctx, tplBalanceReminder, b.GuestEmail, bookingData(b, p))
}

func (n *Notifier) PropertyReviewed(ctx context.Context, p *domain.Property, owner *domain.User) {
	if owner == nil {
		return
	}
	tpl := tplPropertyApproved
	if p.Approval == domain.ApprovalRejected {
		tpl = tplPropertyRejected
	}
	n.send(ctx, tpl, owner.Email, emailData{Recipient: owner.Name, Property: p})
}
