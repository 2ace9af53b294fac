package property

import "errors"

var (
	ErrNotFound       = errors.New("property not found")
	ErrForbidden      = errors.New("not allowed to manage this property")
	ErrReasonRequired = errors.New("a rejection reason is required")
	ErrInvalidRates   = errors.New("invalid rate card")
)
