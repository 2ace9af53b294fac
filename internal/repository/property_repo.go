package repository

import (
	"context"
	"strings"

	"villabook/internal/domain"

	"gorm.io/gorm"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

type PropertyFilter struct {
	City      string
	MinGuests int
	Page      int
	Limit     int
}

func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PropertyRepository) Save(ctx context.Context, p *domain.Property) error {
	return r.db.WithContext(ctx).Omit("Owner").Save(p).Error
}

func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	var p domain.Property
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PropertyRepository) GetBySlug(ctx context.Context, slug string) (*domain.Property, error) {
	var p domain.Property
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PropertyRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var cnt int64
	q := r.db.WithContext(ctx).Model(&domain.Property{}).Where("slug = ?", slug)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListBookable returns published and approved properties matching the filter.
func (r *PropertyRepository) ListBookable(ctx context.Context, f PropertyFilter) ([]domain.Property, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	q := r.db.WithContext(ctx).Model(&domain.Property{}).
		Where("status = ? AND approval = ?", domain.PropertyPublished, domain.ApprovalApproved)
	if city := strings.TrimSpace(f.City); city != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if f.MinGuests > 0 {
		q = q.Where("max_guests >= ?", f.MinGuests)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Property
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *PropertyRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Property, error) {
	var items []domain.Property
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *PropertyRepository) ListByApproval(ctx context.Context, approval domain.ApprovalStatus, page, limit int) ([]domain.Property, int64, error) {
	page, limit = normalizePage(page, limit)

	q := r.db.WithContext(ctx).Model(&domain.Property{})
	if approval != "" {
		q = q.Where("approval = ?", approval)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Property
	err := q.Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *PropertyRepository) CountByApproval(ctx context.Context) (map[domain.ApprovalStatus]int64, error) {
	var rows []struct {
		Approval domain.ApprovalStatus
		Count    int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Property{}).
		Select("approval, COUNT(*) AS count").
		Group("approval").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ApprovalStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Approval] = row.Count
	}
	return out, nil
}
