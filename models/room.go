package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// RoomCapacity is the number of beds in every room.
const RoomCapacity = 2

// RoomStatus occupancy state derived from the occupant count.
type RoomStatus string

const (
	RoomVacant            RoomStatus = "Vacant"
	RoomPartiallyOccupied RoomStatus = "Partially Occupied"
	RoomOccupied          RoomStatus = "Occupied"
)

// StatusFor derives the room status from its occupant count.
// Every write path sets Status through this function.
func StatusFor(n int) RoomStatus {
	switch {
	case n <= 0:
		return RoomVacant
	case n == 1:
		return RoomPartiallyOccupied
	default:
		return RoomOccupied
	}
}

// Room a bedroom in the hostel
type Room struct {
	RoomNo         string           `gorm:"primaryKey;type:varchar(16)" json:"room_no"`
	Floor          int              `gorm:"type:int;index" json:"floor"`
	Capacity       int              `gorm:"type:int;default:2" json:"capacity"`
	CurrentTenants pq.StringArray   `gorm:"type:text[]" json:"current_tenants"` // tenant ids
	OccupantCount  int              `gorm:"type:int;default:0" json:"occupant_count"`
	Status         RoomStatus       `gorm:"type:varchar(32);default:'Vacant'" json:"status"`
	Price          *decimal.Decimal `gorm:"type:decimal(12,2)" json:"price,omitempty"` // nil: default rent
	Version        int              `gorm:"type:int;default:0" json:"-"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// SetOccupants replaces the occupant list and recomputes count and status.
func (r *Room) SetOccupants(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	r.CurrentTenants = pq.StringArray(ids)
	r.OccupantCount = len(ids)
	r.Status = StatusFor(r.OccupantCount)
}

// HasOccupant reports whether tenantID is listed in the room.
func (r *Room) HasOccupant(tenantID string) bool {
	for _, id := range r.CurrentTenants {
		if id == tenantID {
			return true
		}
	}
	return false
}

// IsFull reports whether the room has no free bed.
func (r *Room) IsFull() bool {
	capacity := r.Capacity
	if capacity <= 0 {
		capacity = RoomCapacity
	}
	return len(r.CurrentTenants) >= capacity
}

// IsConsistent reports whether the stored count and status match the occupant list.
func (r *Room) IsConsistent() bool {
	return r.OccupantCount == len(r.CurrentTenants) && r.Status == StatusFor(len(r.CurrentTenants))
}

// RoomOperation occupancy change log
type RoomOperation struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	RoomNo        string    `gorm:"type:varchar(16);index" json:"room_no"`
	TenantID      string    `gorm:"type:varchar(36);index" json:"tenant_id"`
	TenantName    string    `gorm:"type:varchar(255)" json:"tenant_name"`
	OperationType string    `gorm:"type:varchar(50)" json:"operation_type"` // assign, release
	OperationTime time.Time `json:"operation_time"`
	OccupantCount int       `gorm:"type:int" json:"occupant_count"` // after the operation
}

// Room operation types.
const (
	OperationAssign  = "assign"
	OperationRelease = "release"
)
