package admin

import (
	"context"
	"time"

	"villabook/internal/domain"
	"villabook/internal/repository"
)

type UserRepository interface {
	CountByRole(ctx context.Context) (map[domain.UserRole]int64, error)
}

type PropertyRepository interface {
	CountByApproval(ctx context.Context) (map[domain.ApprovalStatus]int64, error)
}

type BookingRepository interface {
	Stats(ctx context.Context) (*repository.BookingStats, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}
