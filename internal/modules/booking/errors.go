package booking

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("booking not found")
	ErrPropertyNotFound    = errors.New("property not found")
	ErrForbidden           = errors.New("not allowed to access this booking")
	ErrPropertyNotBookable = errors.New("property is not open for bookings")
	ErrBookingConflict     = errors.New("the property is already booked for some of these dates")
	ErrStatusChanged       = errors.New("booking status changed, reload and try again")

	ErrInvalidBookingWindow = errors.New("invalid booking window")
	ErrMinNightsNotMet      = errors.New("stay is shorter than the minimum number of nights")
	ErrTooManyGuests        = errors.New("too many guests for this property")

	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidPaymentKind = errors.New("payment type must be deposit or balance")
	ErrPaymentRefunded    = errors.New("cannot unmark a payment that has been refunded")

	ErrAlreadyRefunded     = errors.New("booking has already been fully refunded")
	ErrNothingToRefund     = errors.New("nothing to refund")
	ErrRefundExceedsPaid   = errors.New("refund exceeds the amount paid")
	ErrInvalidRefundAmount = errors.New("refund amount must be positive")
	ErrRefundFailed        = errors.New("payment provider refund failed")
	ErrPaymentsDisabled    = errors.New("payment provider is not configured")
)
