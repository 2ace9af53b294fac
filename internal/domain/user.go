package domain

import "time"

type UserRole string

const (
	RoleGuest UserRole = "guest"
	RoleOwner UserRole = "owner"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleGuest, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"size:255;uniqueIndex;not null" validate:"required,email"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Name         string     `json:"name" gorm:"size:255"`
	Phone        string     `json:"phone,omitempty" gorm:"size:50"`
	Role         UserRole   `json:"role" gorm:"size:20;not null;default:guest"`
	CRMContactID *string    `json:"crm_contact_id,omitempty" gorm:"size:100"`
	CRMSyncedAt  *time.Time `json:"crm_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NeedsCRMSync is true for users never pushed to the CRM or edited since the last push.
func (u *User) NeedsCRMSync() bool {
	return u.CRMSyncedAt == nil || u.UpdatedAt.After(*u.CRMSyncedAt)
}
