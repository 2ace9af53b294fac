package property

import "villabook/internal/domain"

type RateCardInput struct {
	Currency           string `json:"currency" validate:"omitempty,len=3,alpha"`
	NightlyRate        int64  `json:"nightly_rate" validate:"required,min=1"`
	WeekendRate        int64  `json:"weekend_rate" validate:"min=0"`
	WeeklyDiscountPct  int    `json:"weekly_discount_pct" validate:"min=0,max=100"`
	MonthlyDiscountPct int    `json:"monthly_discount_pct" validate:"min=0,max=100"`
	CleaningFee        int64  `json:"cleaning_fee" validate:"min=0"`
	MinNights          int    `json:"min_nights" validate:"omitempty,min=1,max=365"`
}

type CreatePropertyRequest struct {
	Title       string        `json:"title" validate:"required,min=3,max=255"`
	Description string        `json:"description" validate:"max=10000"`
	Address     string        `json:"address" validate:"max=500"`
	City        string        `json:"city" validate:"required,max=100"`
	Country     string        `json:"country" validate:"max=100"`
	MaxGuests   int           `json:"max_guests" validate:"required,min=1,max=50"`
	Bedrooms    int           `json:"bedrooms" validate:"min=0,max=100"`
	Bathrooms   int           `json:"bathrooms" validate:"min=0,max=100"`
	Rates       RateCardInput `json:"rates"`
}

// UpdatePropertyRequest only touches the fields that are present.
type UpdatePropertyRequest struct {
	Title       *string        `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string        `json:"description" validate:"omitempty,max=10000"`
	Address     *string        `json:"address" validate:"omitempty,max=500"`
	City        *string        `json:"city" validate:"omitempty,max=100"`
	Country     *string        `json:"country" validate:"omitempty,max=100"`
	MaxGuests   *int           `json:"max_guests" validate:"omitempty,min=1,max=50"`
	Bedrooms    *int           `json:"bedrooms" validate:"omitempty,min=0,max=100"`
	Bathrooms   *int           `json:"bathrooms" validate:"omitempty,min=0,max=100"`
	Rates       *RateCardInput `json:"rates" validate:"omitempty"`
}

type ListQuery struct {
	City   string `form:"city" validate:"omitempty,max=100"`
	Guests int    `form:"guests" validate:"omitempty,min=1"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type ApprovalQuery struct {
	Approval domain.ApprovalStatus `form:"approval" validate:"omitempty,oneof=pending approved rejected"`
	Page     int                   `form:"page" validate:"omitempty,min=1"`
	Limit    int                   `form:"limit" validate:"omitempty,min=1,max=100"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}
