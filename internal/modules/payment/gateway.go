package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"villabook/internal/config"
)

// IntentParams describes a payment intent to create at the provider.
type IntentParams struct {
	Amount         int64
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// ProviderRefund is a refund as reported by the provider.
type ProviderRefund struct {
	ID     string
	Amount int64
	Status string
}

// Gateway hides the payment provider from the services.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error)
	Refund(ctx context.Context, paymentIntentID string, amount int64) (string, error)
	ChargeRefunds(ctx context.Context, chargeID string) ([]ProviderRefund, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type StripeGateway struct {
	sc            *stripe.Client
	webhookSecret string
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	return &StripeGateway{
		sc:            stripe.NewClient(cfg.SecretKey),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(p.ReceiptEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := g.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// Refund refunds part of a payment intent and returns the refund id.
func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string, amount int64) (string, error) {
	r, err := g.sc.V1Refunds.Create(ctx, &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amount),
	})
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

func (g *StripeGateway) ChargeRefunds(ctx context.Context, chargeID string) ([]ProviderRefund, error) {
	var out []ProviderRefund
	for r, err := range g.sc.V1Refunds.List(ctx, &stripe.RefundListParams{Charge: stripe.String(chargeID)}) {
		if err != nil {
			return nil, err
		}
		out = append(out, ProviderRefund{ID: r.ID, Amount: r.Amount, Status: string(r.Status)})
	}
	return out, nil
}

var errNoWebhookSecret = errors.New("stripe webhook secret is not configured")

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if g.webhookSecret == "" {
		return stripe.Event{}, errNoWebhookSecret
	}
	return webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
