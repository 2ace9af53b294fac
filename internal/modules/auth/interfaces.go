package auth

import (
	"context"

	"villabook/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type jwtService interface {
	GenerateToken(userID int64, role domain.UserRole) (string, error)
}

// ContactSyncer pushes new accounts to the CRM in the background.
type ContactSyncer interface {
	SyncUserAsync(userID int64)
}
