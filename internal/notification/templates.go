package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var funcs = template.FuncMap{"money": FormatMoney}

func mustTemplate(name, subject, body string) emailTemplate {
	return emailTemplate{
		subject: template.Must(template.New(name + ".subject").Funcs(funcs).Parse(subject)),
		body:    template.Must(template.New(name + ".body").Funcs(funcs).Parse(strings.TrimSpace(body) + "\n")),
	}
}

const (
	tplBookingReceived  = "booking_received"
	tplOwnerNewBooking  = "owner_new_booking"
	tplBookingConfirmed = "booking_confirmed"
	tplBookingCancelled = "booking_cancelled"
	tplPaymentReceived  = "payment_received"
	tplRefundIssued     = "refund_issued"
	tplBalanceReminder  = "balance_reminder"
	tplPropertyApproved = "property_approved"
	tplPropertyRejected = "property_rejected"
)

var templates = map[string]emailTemplate{
	tplBookingReceived: mustTemplate(tplBookingReceived,
		`Booking request received: {{.Property.Title}}`, `
Hi {{.Booking.GuestName}},

We received your booking request for {{.Property.Title}} from {{.CheckIn}} to {{.CheckOut}} ({{.Booking.Nights}} nights, {{.Booking.Guests}} guests).

Total: {{money .Booking.TotalAmount .Booking.Currency}}
Deposit due now: {{money .Booking.DepositAmount .Booking.Currency}}
Balance due before arrival: {{money .Booking.BalanceAmount .Booking.Currency}}

Reference: {{.Booking.Reference}}`),

	tplOwnerNewBooking: mustTemplate(tplOwnerNewBooking,
		`New booking for {{.Property.Title}}`, `
Hi {{.Recipient}},

{{.Booking.GuestName}} ({{.Booking.GuestEmail}}) requested {{.Property.Title}} from {{.CheckIn}} to {{.CheckOut}} for {{.Booking.Guests}} guests.

Total: {{money .Booking.TotalAmount .Booking.Currency}}
Reference: {{.Booking.Reference}}`),

	tplBookingConfirmed: mustTemplate(tplBookingConfirmed,
		`Your stay at {{.Property.Title}} is confirmed`, `
Hi {{.Booking.GuestName}},

Your booking {{.Booking.Reference}} for {{.Property.Title}} from {{.CheckIn}} to {{.CheckOut}} is confirmed.
{{if not .Booking.BalancePaid}}
The balance of {{money .Booking.BalanceAmount .Booking.Currency}} is due before arrival.{{end}}`),

	tplBookingCancelled: mustTemplate(tplBookingCancelled,
		`Booking {{.Booking.Reference}} cancelled`, `
Hi {{.Booking.GuestName}},

Your booking for {{.Property.Title}} from {{.CheckIn}} to {{.CheckOut}} has been cancelled.{{if .Booking.CancellationReason}}
Reason: {{.Booking.CancellationReason}}{{end}}{{if .Amount}}
A refund of {{money .Amount .Booking.Currency}} has been issued.{{end}}`),

	tplPaymentReceived: mustTemplate(tplPaymentReceived,
		`Payment received for {{.Property.Title}}`, `
Hi {{.Booking.GuestName}},

We received your {{.Kind}} payment of {{money .Amount .Booking.Currency}} for booking {{.Booking.Reference}}.`),

	tplRefundIssued: mustTemplate(tplRefundIssued,
		`Refund issued for booking {{.Booking.Reference}}`, `
Hi {{.Booking.GuestName}},

A refund of {{money .Amount .Booking.Currency}} for your stay at {{.Property.Title}} has been issued.
Total refunded so far: {{money .Booking.RefundedAmount .Booking.Currency}}`),

	tplBalanceReminder: mustTemplate(tplBalanceReminder,
		`Balance due for your stay at {{.Property.Title}}`, `
Hi {{.Booking.GuestName}},

Your stay at {{.Property.Title}} starts on {{.CheckIn}}. The remaining balance of {{money .Booking.BalanceAmount .Booking.Currency}} is still open.

Reference: {{.Booking.Reference}}`),

	tplPropertyApproved: mustTemplate(tplPropertyApproved,
		`{{.Property.Title}} was approved`, `
Hi {{.Recipient}},

Your listing {{.Property.Title}} was approved and is bookable once published.`),

	tplPropertyRejected: mustTemplate(tplPropertyRejected,
		`{{.Property.Title}} was not approved`, `
Hi {{.Recipient}},

Your listing {{.Property.Title}} was not approved.
Reason: {{.Property.RejectionReason}}`),
}

func render(name string, data any) (subject, body string, err error) {
	tpl, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var sb, bb bytes.Buffer
	if err := tpl.subject.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tpl.body.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return sb.String(), bb.String(), nil
}

// FormatMoney renders minor units as "USD 1234.56".
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s %s%d.%02d", strings.ToUpper(currency), sign, cents/100, cents%100)
}
