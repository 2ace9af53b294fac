package admin

import (
	"villabook/internal/domain"
	"villabook/internal/repository"
)

type StatisticsResponse struct {
	UsersByRole          map[domain.UserRole]int64       `json:"users_by_role"`
	TotalUsers           int64                           `json:"total_users"`
	PropertiesByApproval map[domain.ApprovalStatus]int64 `json:"properties_by_approval"`
	PendingProperties    int64                           `json:"pending_properties"`
	Bookings             *repository.BookingStats        `json:"bookings"`
	TodayBookings        int64                           `json:"today_bookings"`
	NetRevenue           int64                           `json:"net_revenue"`
}
