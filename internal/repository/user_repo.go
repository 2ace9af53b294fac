package repository

import (
	"context"
	"strings"
	"time"

	"villabook/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	tx := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListNeedingCRMSync returns users never synced or modified after their last sync.
func (r *UserRepository) ListNeedingCRMSync(ctx context.Context, limit int) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("crm_synced_at IS NULL OR updated_at > crm_synced_at").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// MarkCRMSynced stores the contact id without touching updated_at.
func (r *UserRepository) MarkCRMSynced(ctx context.Context, id int64, contactID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"crm_contact_id": contactID,
			"crm_synced_at":  at,
		}).Error
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[domain.UserRole]int64, error) {
	var rows []struct {
		Role  domain.UserRole
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.UserRole]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}
