package property

import (
	"context"

	"villabook/internal/domain"
	"villabook/internal/repository"
)

type PropertyRepository interface {
	Create(ctx context.Context, p *domain.Property) error
	Save(ctx context.Context, p *domain.Property) error
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Property, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	ListBookable(ctx context.Context, f repository.PropertyFilter) ([]domain.Property, int64, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Property, error)
	ListByApproval(ctx context.Context, approval domain.ApprovalStatus, page, limit int) ([]domain.Property, int64, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier interface {
	PropertyReviewed(ctx context.Context, p *domain.Property, owner *domain.User)
}
