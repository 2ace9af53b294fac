package payment

import "errors"

var (
	ErrAlreadyPaid      = errors.New("this payment has already been made")
	ErrDepositRequired  = errors.New("the deposit must be paid before the balance")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrPaymentsDisabled = errors.New("online payments are not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrProvider         = errors.New("payment provider error")
)
