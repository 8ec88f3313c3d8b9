package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultProfilePhoto is used when a tenant is created without a photo.
const DefaultProfilePhoto = "https://icon-library.com/images/anonymous-avatar-icon/anonymous-avatar-icon-25.jpg"

// Accepted identity document types.
var IDTypes = []string{"aadhar", "pan", "voter"}

// Tenant an active occupant. CreatedAt is the move-in date.
type Tenant struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Email        string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string          `gorm:"type:varchar(255);not null" json:"-"`
	Phone        string          `gorm:"type:varchar(32);not null" json:"phone"`
	RoomNo       string          `gorm:"type:varchar(16);index" json:"room_no"`
	Deposit      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"deposit"`
	IDType       string          `gorm:"type:varchar(16);not null" json:"id_type"`
	IDNumber     string          `gorm:"type:varchar(64);not null" json:"id_number"`
	IDProof      string          `gorm:"type:text;not null" json:"id_proof"`
	ProfilePhoto string          `gorm:"type:text" json:"profile_photo"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PastTenant archived copy of a tenant who checked out. Never updated.
type PastTenant struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OriginalID       string          `gorm:"type:varchar(36);index;not null" json:"original_id"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	Email            string          `gorm:"type:varchar(255);not null" json:"email"`
	Phone            string          `gorm:"type:varchar(32);not null" json:"phone"`
	RoomNo           string          `gorm:"type:varchar(16);not null" json:"room_no"`
	IDType           string          `gorm:"type:varchar(16)" json:"id_type"`
	IDNumber         string          `gorm:"type:varchar(64)" json:"id_number"`
	IDProof          string          `gorm:"type:text" json:"id_proof"`
	ProfilePhoto     string          `gorm:"type:text" json:"profile_photo"`
	Deposit          decimal.Decimal `gorm:"type:decimal(12,2)" json:"deposit"`
	JoinedAt         time.Time       `json:"joined_at"`
	LeftAt           time.Time       `gorm:"index" json:"left_at"`
	ReasonForLeaving string          `gorm:"type:text" json:"reason_for_leaving,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
