package booking

import (
	"fmt"

	"villabook/internal/domain"
)

type RefundPortion struct {
	Kind            domain.PaymentKind `json:"kind"`
	PaymentIntentID string             `json:"payment_intent_id,omitempty"`
	Amount          int64              `json:"amount"`
}

type RefundPlan struct {
	AmountPaid      int64           `json:"amount_paid"`
	AlreadyRefunded int64           `json:"already_refunded"`
	Refundable      int64           `json:"refundable"`
	Amount          int64           `json:"amount"`
	ForcesCancel    bool            `json:"forces_cancel"`
	Portions        []RefundPortion `json:"portions"`
}

// HasProviderPortion reports whether any portion was paid through Stripe.
func (p *RefundPlan) HasProviderPortion() bool {
	for _, portion := range p.Portions {
		if portion.PaymentIntentID != "" {
			return true
		}
	}
	return false
}

// CalculateRefund decides how much of what was paid goes back to the guest.
// Without an explicit amount the deposit is kept and only the paid balance is
// returned. The amount never exceeds paid minus already refunded.
func CalculateRefund(b *domain.Booking, req RefundRequest) (*RefundPlan, error) {
	plan := &RefundPlan{
		AmountPaid:      b.AmountPaid(),
		AlreadyRefunded: b.RefundedAmount,
		Refundable:      b.Refundable(),
	}

	if plan.Refundable == 0 {
		if b.RefundedAmount > 0 || b.StripeRefundID != nil {
			return nil, ErrAlreadyRefunded
		}
		return nil, ErrNothingToRefund
	}

	switch {
	case req.Full:
		plan.Amount = plan.Refundable
	case req.Amount != nil:
		amount := *req.Amount
		if amount <= 0 {
			return nil, ErrInvalidRefundAmount
		}
		if amount > plan.Refundable {
			return nil, fmt.Errorf("%w: at most %d can be refunded", ErrRefundExceedsPaid, plan.Refundable)
		}
		plan.Amount = amount
	default:
		var balancePaid int64
		if b.BalancePaid {
			balancePaid = b.BalanceAmount
		}
		plan.Amount = min(balancePaid, plan.Refundable)
		if plan.Amount == 0 {
			return nil, fmt.Errorf("%w: the deposit is non-refundable", ErrNothingToRefund)
		}
	}

	plan.ForcesCancel = plan.Amount == plan.Refundable
	plan.Portions = splitPortions(b, plan.Amount)
	return plan, nil
}

// splitPortions spreads amount over the balance payment first, then the
// deposit. Earlier refunds are assumed to have consumed the balance first too.
func splitPortions(b *domain.Booking, amount int64) []RefundPortion {
	var balancePaid, depositPaid int64
	if b.BalancePaid {
		balancePaid = b.BalanceAmount
	}
	if b.DepositPaid {
		depositPaid = b.DepositAmount
	}

	prior := b.RefundedAmount
	balanceLeft := max(balancePaid-prior, 0)
	prior = max(prior-balancePaid, 0)
	depositLeft := max(depositPaid-prior, 0)

	var portions []RefundPortion
	if take := min(amount, balanceLeft); take > 0 {
		portions = append(portions, RefundPortion{Kind: domain.PaymentBalance, PaymentIntentID: b.IntentFor(domain.PaymentBalance), Amount: take})
		amount -= take
	}
	if take := min(amount, depositLeft); take > 0 {
		portions = append(portions, RefundPortion{Kind: domain.PaymentDeposit, PaymentIntentID: b.IntentFor(domain.PaymentDeposit), Amount: take})
	}
	return portions
}
