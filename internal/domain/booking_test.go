package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]BookingStatus{
		{BookingPending, BookingConfirmed},
		{BookingPending, BookingCancelled},
		{BookingConfirmed, BookingCompleted},
		{BookingConfirmed, BookingCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]BookingStatus{
		{BookingPending, BookingCompleted},
		{BookingPending, BookingPending},
		{BookingConfirmed, BookingPending},
		{BookingCompleted, BookingCancelled},
		{BookingCancelled, BookingConfirmed},
		{BookingCancelled, BookingPending},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestSplitDeposit(t *testing.T) {
	cases := []struct {
		total, deposit int64
	}{
		{100000, 25000},
		{1, 0},
		{2, 1}, // 0.5 rounds up
		{3, 1},
		{6, 2}, // 1.5 rounds up
		{99999, 25000},
		{0, 0},
	}
	for _, tc := range cases {
		d, b := SplitDeposit(tc.total)
		assert.Equal(t, tc.deposit, d, "total=%d", tc.total)
		assert.Equal(t, tc.total, d+b)
	}
}

func TestBooking_AmountPaidAndRefundable(t *testing.T) {
	b := &Booking{DepositAmount: 2500, BalanceAmount: 7500}
	assert.Zero(t, b.AmountPaid())

	b.DepositPaid = true
	assert.Equal(t, int64(2500), b.AmountPaid())

	b.BalancePaid = true
	b.RefundedAmount = 7500
	assert.Equal(t, int64(10000), b.AmountPaid())
	assert.Equal(t, int64(2500), b.Refundable())

	b.RefundedAmount = 20000
	assert.Zero(t, b.Refundable())
}

func TestNightsBetween(t *testing.T) {
	in, err := ParseDate("2026-07-03")
	require.NoError(t, err)
	out, err := ParseDate("2026-07-10")
	require.NoError(t, err)

	assert.Equal(t, 7, NightsBetween(in, out))
	assert.Equal(t, -7, NightsBetween(out, in))
}

func TestProperty_IsBookable(t *testing.T) {
	p := &Property{Status: PropertyPublished, Approval: ApprovalPending}
	assert.False(t, p.IsBookable())

	p.Approval = ApprovalApproved
	assert.True(t, p.IsBookable())

	p.Status = PropertyUnpublished
	assert.False(t, p.IsBookable())
}

func TestBooking_RefundIDs(t *testing.T) {
	b := &Booking{}
	assert.False(t, b.HasRefundID("re_1"))

	ids := b.RefundIDsWith("re_1", "re_2")
	b.StripeRefundID = &ids
	assert.Equal(t, "re_1,re_2", ids)
	assert.True(t, b.HasRefundID("re_2"))
	assert.Equal(t, "re_1,re_2,re_3", b.RefundIDsWith("re_2", "re_3", ""))
}
