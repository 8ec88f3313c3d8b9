package models

import "time"

// ComplaintStatus state of a complaint.
type ComplaintStatus string

const (
	ComplaintOpen     ComplaintStatus = "Open"
	ComplaintResolved ComplaintStatus = "Resolved"
)

// Complaint lodged by a tenant about their room.
type Complaint struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID    string          `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	RoomNo      string          `gorm:"type:varchar(16);not null" json:"room_no"`
	Description string          `gorm:"type:text;not null" json:"description"`
	ImageURL    string          `gorm:"type:text" json:"image_url,omitempty"`
	Status      ComplaintStatus `gorm:"type:varchar(16);not null;default:'Open'" json:"status"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// Notice posted by an admin to every tenant.
type Notice struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedBy string    `gorm:"type:varchar(255);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
