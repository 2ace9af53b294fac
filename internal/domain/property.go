package domain

import "time"

type PropertyStatus string

const (
	PropertyDraft       PropertyStatus = "draft"
	PropertyPublished   PropertyStatus = "published"
	PropertyUnpublished PropertyStatus = "unpublished"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// RateCard holds a property's pricing tiers. Money is in minor units.
type RateCard struct {
	Currency           string `json:"currency" gorm:"size:3;not null;default:usd"`
	NightlyRate        int64  `json:"nightly_rate" gorm:"not null"`
	WeekendRate        int64  `json:"weekend_rate"`
	WeeklyDiscountPct  int    `json:"weekly_discount_pct"`
	MonthlyDiscountPct int    `json:"monthly_discount_pct"`
	CleaningFee        int64  `json:"cleaning_fee"`
	MinNights          int    `json:"min_nights" gorm:"not null;default:1"`
}

type Property struct {
	ID              int64          `json:"id" gorm:"primaryKey"`
	OwnerID         int64          `json:"owner_id" gorm:"index;not null"`
	Title           string         `json:"title" gorm:"size:255;not null"`
	Slug            string         `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	Description     string         `json:"description" gorm:"type:text"`
	Address         string         `json:"address"`
	City            string         `json:"city" gorm:"size:100;index"`
	Country         string         `json:"country" gorm:"size:100"`
	MaxGuests       int            `json:"max_guests" gorm:"not null;default:1"`
	Bedrooms        int            `json:"bedrooms"`
	Bathrooms       int            `json:"bathrooms"`
	RateCard        RateCard       `json:"rate_card" gorm:"embedded"`
	Status          PropertyStatus `json:"status" gorm:"size:20;not null;default:draft;index"`
	Approval        ApprovalStatus `json:"approval" gorm:"size:20;not null;default:pending;index"`
	RejectionReason string         `json:"rejection_reason,omitempty" gorm:"type:text"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	ApprovedBy      *int64         `json:"approved_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

func (p *Property) IsBookable() bool {
	return p.Status == PropertyPublished && p.Approval == ApprovalApproved
}

func (p *Property) OwnedBy(userID int64) bool {
	return p.OwnerID == userID
}
