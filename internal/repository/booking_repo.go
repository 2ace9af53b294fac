package repository

import (
	"context"
	"fmt"
	"time"

	"villabook/internal/domain"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type BookingFilter struct {
	Status domain.BookingStatus
	Page   int
	Limit  int
}

// overlapQuery matches active bookings intersecting the half-open stay [check_in, check_out).
func overlapQuery(tx *gorm.DB, propertyID int64, checkIn, checkOut time.Time) *gorm.DB {
	return tx.Model(&domain.Booking{}).
		Where("property_id = ?", propertyID).
		Where("status <> ?", domain.BookingCancelled).
		Where("check_in < ? AND check_out > ?", checkOut, checkIn)
}

// CreateIfAvailable inserts b unless an active booking overlaps it. The check and
// insert share a transaction; on Postgres the exclusion constraint closes the race.
func (r *BookingRepository) CreateIfAvailable(ctx context.Context, b *domain.Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := overlapQuery(tx, b.PropertyID, b.CheckIn, b.CheckOut).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrOverlap
		}
		return tx.Omit("Property").Create(b).Error
	})
	if err != nil && isConflict(err) {
		return fmt.Errorf("%w: %v", ErrOverlap, err)
	}
	return err
}

func (r *BookingRepository) HasOverlap(ctx context.Context, propertyID int64, checkIn, checkOut time.Time) (bool, error) {
	var cnt int64
	if err := overlapQuery(r.db.WithContext(ctx), propertyID, checkIn, checkOut).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ActiveInRange lists non-cancelled bookings of a property intersecting [from, to).
func (r *BookingRepository) ActiveInRange(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.Booking, error) {
	var items []domain.Booking
	err := overlapQuery(r.db.WithContext(ctx), propertyID, from, to).
		Order("check_in ASC").
		Find(&items).Error
	return items, err
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetByReference(ctx context.Context, ref string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Where("reference = ?", ref).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByPaymentIntent finds the booking whose deposit or balance used the intent.
func (r *BookingRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Where("stripe_deposit_intent_id = ? OR stripe_balance_intent_id = ?", intentID, intentID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) list(q *gorm.DB, f BookingFilter) ([]domain.Booking, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	if f.Status != "" {
		q = q.Where("bookings.status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Booking
	err := q.Select("bookings.*").
		Order("bookings.check_in DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID int64, f BookingFilter) ([]domain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("bookings.guest_id = ?", guestID)
	return r.list(q, f)
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID int64, f BookingFilter) ([]domain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Joins("JOIN properties ON properties.id = bookings.property_id").
		Where("properties.owner_id = ?", ownerID)
	return r.list(q, f)
}

func (r *BookingRepository) ListAll(ctx context.Context, f BookingFilter) ([]domain.Booking, int64, error) {
	return r.list(r.db.WithContext(ctx).Model(&domain.Booking{}), f)
}

// TransitionStatus writes the next status only if the row is still in from.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.BookingStatus, fields map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	tx := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// FinishedConfirmed lists confirmed bookings whose check-out day is before today.
func (r *BookingRepository) FinishedConfirmed(ctx context.Context, today time.Time) ([]domain.Booking, error) {
	var items []domain.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND check_out < ?", domain.BookingConfirmed, today).
		Order("check_out ASC").
		Find(&items).Error
	return items, err
}

// BalanceDue lists confirmed bookings with an unpaid balance checking in within [from, to].
func (r *BookingRepository) BalanceDue(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	var items []domain.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND balance_paid = ?", domain.BookingConfirmed, false).
		Where("check_in >= ? AND check_in <= ?", from, to).
		Order("check_in ASC").
		Find(&items).Error
	return items, err
}

type BookingStats struct {
	ByStatus       map[domain.BookingStatus]int64 `json:"by_status"`
	CollectedTotal int64                          `json:"collected_total"`
	RefundedTotal  int64                          `json:"refunded_total"`
}

func (r *BookingRepository) Stats(ctx context.Context) (*BookingStats, error) {
	var rows []struct {
		Status domain.BookingStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &BookingStats{ByStatus: make(map[domain.BookingStatus]int64, len(rows))}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
	}

	var sums struct {
		Deposits int64
		Balances int64
		Refunded int64
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Select(`COALESCE(SUM(CASE WHEN deposit_paid THEN deposit_amount ELSE 0 END), 0) AS deposits,
			COALESCE(SUM(CASE WHEN balance_paid THEN balance_amount ELSE 0 END), 0) AS balances,
			COALESCE(SUM(refunded_amount), 0) AS refunded`).
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	stats.CollectedTotal = sums.Deposits + sums.Balances
	stats.RefundedTotal = sums.Refunded
	return stats, nil
}

// CountCreatedSince counts bookings created at or after since.
func (r *BookingRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}
