package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillType kind of charge.
type BillType string

const (
	BillRent        BillType = "Rent"
	BillElectricity BillType = "Electricity"
)

// BillStatus payment state of a bill.
type BillStatus string

const (
	BillUnpaid BillStatus = "Unpaid"
	BillPaid   BillStatus = "Paid"
)

// Bill a system generated charge. At most one per (tenant, month, year, type),
// enforced by idx_bill_period.
type Bill struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID       string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_bill_period,priority:1" json:"tenant_id"`
	RoomNo         string          `gorm:"type:varchar(16);not null" json:"room_no"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Month          string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_bill_period,priority:2" json:"month"`
	Year           int             `gorm:"type:int;not null;uniqueIndex:idx_bill_period,priority:3" json:"year"`
	Type           BillType        `gorm:"type:varchar(16);not null;default:'Rent';uniqueIndex:idx_bill_period,priority:4" json:"type"`
	Status         BillStatus      `gorm:"type:varchar(16);not null;default:'Unpaid'" json:"status"`
	DueDate        time.Time       `gorm:"not null" json:"due_date"`
	OrderID        string          `gorm:"type:varchar(64);index" json:"order_id,omitempty"` // latest gateway order opened for the bill
	TransactionRef string          `gorm:"type:varchar(64)" json:"transaction_ref,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// RentProofStatus review state of a manual rent proof.
type RentProofStatus string

const (
	ProofPending  RentProofStatus = "Pending"
	ProofApproved RentProofStatus = "Approved"
	ProofRejected RentProofStatus = "Rejected"
)

// Valid reports whether s is one of the review states.
func (s RentProofStatus) Valid() bool {
	switch s {
	case ProofPending, ProofApproved, ProofRejected:
		return true
	}
	return false
}

// RentProof a tenant submitted payment proof awaiting admin review.
type RentProof struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID  string          `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	Month     string          `gorm:"type:varchar(16);not null;index:idx_proof_period" json:"month"`
	Year      int             `gorm:"type:int;not null;index:idx_proof_period" json:"year"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	ProofURL  string          `gorm:"type:text" json:"proof_url"`
	Status    RentProofStatus `gorm:"type:varchar(16);not null;default:'Pending'" json:"status"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
