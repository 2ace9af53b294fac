package booking

import (
	"fmt"
	"time"

	"villabook/internal/domain"
)

const (
	weeklyNights  = 7
	monthlyNights = 28
	maxStayNights = 365
)

type Quote struct {
	Nights      int    `json:"nights"`
	Subtotal    int64  `json:"subtotal"`
	NightlyRate int64  `json:"nightly_rate"`
	DiscountPct int    `json:"discount_pct"`
	Discount    int64  `json:"discount"`
	CleaningFee int64  `json:"cleaning_fee"`
	Total       int64  `json:"total"`
	Deposit     int64  `json:"deposit"`
	Balance     int64  `json:"balance"`
	Currency    string `json:"currency"`
}

// CalculateQuote prices a stay against the property's rate card. today is the
// earliest allowed check-in date.
func CalculateQuote(p *domain.Property, checkIn, checkOut time.Time, guests int, today time.Time) (*Quote, error) {
	checkIn, checkOut, today = domain.DateOf(checkIn), domain.DateOf(checkOut), domain.DateOf(today)

	if !checkOut.After(checkIn) {
		return nil, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidBookingWindow)
	}
	if checkIn.Before(today) {
		return nil, fmt.Errorf("%w: check-in is in the past", ErrInvalidBookingWindow)
	}

	nights := domain.NightsBetween(checkIn, checkOut)
	if nights > maxStayNights {
		return nil, fmt.Errorf("%w: stays are limited to %d nights", ErrInvalidBookingWindow, maxStayNights)
	}
	minNights := p.RateCard.MinNights
	if minNights < 1 {
		minNights = 1
	}
	if nights < minNights {
		return nil, fmt.Errorf("%w: minimum is %d", ErrMinNightsNotMet, minNights)
	}
	if guests > p.MaxGuests {
		return nil, fmt.Errorf("%w: maximum is %d", ErrTooManyGuests, p.MaxGuests)
	}

	rc := p.RateCard
	var subtotal int64
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		subtotal += nightRate(rc, d)
	}

	pct := 0
	switch {
	case nights >= monthlyNights && rc.MonthlyDiscountPct > 0:
		pct = rc.MonthlyDiscountPct
	case nights >= weeklyNights && rc.WeeklyDiscountPct > 0:
		pct = rc.WeeklyDiscountPct
	}
	discount := percentOf(subtotal, pct)

	total := subtotal - discount + rc.CleaningFee
	deposit, balance := domain.SplitDeposit(total)

	return &Quote{
		Nights:      nights,
		Subtotal:    subtotal,
		NightlyRate: (subtotal + int64(nights)/2) / int64(nights),
		DiscountPct: pct,
		Discount:    discount,
		CleaningFee: rc.CleaningFee,
		Total:       total,
		Deposit:     deposit,
		Balance:     balance,
		Currency:    rc.Currency,
	}, nil
}

// nightRate uses the weekend rate for nights starting on Friday or Saturday.
func nightRate(rc domain.RateCard, night time.Time) int64 {
	wd := night.Weekday()
	if rc.WeekendRate > 0 && (wd == time.Friday || wd == time.Saturday) {
		return rc.WeekendRate
	}
	return rc.NightlyRate
}

// percentOf rounds half up.
func percentOf(amount int64, pct int) int64 {
	if pct <= 0 {
		return 0
	}
	if pct > 100 {
		pct = 100
	}
	return (amount*int64(pct) + 50) / 100
}
