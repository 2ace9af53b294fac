package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrOverlap is returned when an active booking already covers part of the requested stay.
	ErrOverlap = errors.New("booking dates overlap an existing booking")
	// ErrStaleStatus is returned by guarded updates when the row left the expected status.
	ErrStaleStatus = errors.New("booking status changed concurrently")
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

// isConflict reports whether err is a Postgres exclusion or unique violation.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
