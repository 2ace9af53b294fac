package admin

import (
	"context"
	"fmt"
	"time"

	"villabook/internal/domain"
)

type Service struct {
	userRepo     UserRepository
	propertyRepo PropertyRepository
	bookingRepo  BookingRepository
	now          func() time.Time
}

func NewService(userRepo UserRepository, propertyRepo PropertyRepository, bookingRepo BookingRepository) *Service {
	return &Service{
		userRepo:     userRepo,
		propertyRepo: propertyRepo,
		bookingRepo:  bookingRepo,
		now:          time.Now,
	}
}

// GetStatistics aggregates platform counters for the admin dashboard.
// Money totals are in minor units across all currencies.
func (s *Service) GetStatistics(ctx context.Context) (*StatisticsResponse, error) {
	users, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	properties, err := s.propertyRepo.CountByApproval(ctx)
	if err != nil {
		return nil, fmt.Errorf("count properties: %w", err)
	}
	bookings, err := s.bookingRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking stats: %w", err)
	}

	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := s.bookingRepo.CountCreatedSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("count today bookings: %w", err)
	}

	var totalUsers int64
	for _, n := range users {
		totalUsers += n
	}

	return &StatisticsResponse{
		UsersByRole:          users,
		TotalUsers:           totalUsers,
		PropertiesByApproval: properties,
		PendingProperties:    properties[domain.ApprovalPending],
		Bookings:             bookings,
		TodayBookings:        today,
		NetRevenue:           bookings.CollectedTotal - bookings.RefundedTotal,
	}, nil
}
