package domain

import "time"

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NightsBetween counts whole days between two dates.
func NightsBetween(checkIn, checkOut time.Time) int {
	return int(DateOf(checkOut).Sub(DateOf(checkIn)).Hours() / 24)
}
