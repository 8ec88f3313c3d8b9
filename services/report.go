package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pg-hostel/models"
)

// Report row statuses besides the manual proof states.
const (
	StatusPaidOnline = "Paid (Online)"
	StatusUnpaid     = "Unpaid"
	StatusNotPaid    = "Not Paid"
)

// Report row sources.
const (
	SourceManual = "manual"
	SourceBill   = "bill"
	SourceNone   = "none"
)

// ReportRow payment status of one tenant for a period.
type ReportRow struct {
	TenantID string          `json:"tenant_id"`
	Name     string          `json:"name"`
	RoomNo   string          `json:"room_no"`
	Phone    string          `json:"phone"`
	Email    string          `json:"email"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	ProofURL string          `json:"proof_url,omitempty"`
	RentID   string          `json:"rent_id,omitempty"` // proof or bill id
	Source   string          `json:"source"`
}

// ReportService answers "who has paid for month X of year Y, and how".
type ReportService struct {
	db       *gorm.DB
	location *time.Location
}

// NewReportService creates a report service. Month boundaries are computed in loc.
func NewReportService(db *gorm.DB, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{db: db, location: loc}
}

// Build produces one row per tenant who had moved in by the end of the month.
func (s *ReportService) Build(ctx context.Context, month string, year int) ([]ReportRow, error) {
	m, ok := ParseMonth(month)
	if !ok {
		return nil, invalid("month", "invalid month name")
	}
	if year <= 0 {
		return nil, invalid("year", "must be positive")
	}
	month = m.String()
	cutoff := EndOfMonth(year, m, s.location)

	db := s.db.WithContext(ctx)

	var all []models.Tenant
	if err := db.Where("room_no IS NOT NULL AND room_no <> ''").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}
	// tenants who joined after the month were not yet liable
	tenants := make([]models.Tenant, 0, len(all))
	for _, t := range all {
		if !t.CreatedAt.After(cutoff) {
			tenants = append(tenants, t)
		}
	}

	var proofs []models.RentProof
	if err := db.Where("month = ? AND year = ?", month, year).Order("created_at DESC").Find(&proofs).Error; err != nil {
		return nil, fmt.Errorf("load rent proofs: %w", err)
	}

	var bills []models.Bill
	if err := db.
		Where("month = ? AND year = ?", month, year).
		Where("type IN ?", []models.BillType{models.BillRent, models.BillElectricity}).
		Find(&bills).Error; err != nil {
		return nil, fmt.Errorf("load bills: %w", err)
	}

	return MergeReport(tenants, proofs, bills), nil
}

// MergeReport left-joins tenants against manual proofs and bills. A manual proof
// wins over any bill; among proofs the first in the slice wins, so callers pass
// them newest first. A Rent bill is preferred over an Electricity bill.
func MergeReport(tenants []models.Tenant, proofs []models.RentProof, bills []models.Bill) []ReportRow {
	proofByTenant := make(map[string]models.RentProof, len(proofs))
	for _, p := range proofs {
		if _, seen := proofByTenant[p.TenantID]; !seen {
			proofByTenant[p.TenantID] = p
		}
	}

	billByTenant := make(map[string]models.Bill, len(bills))
	for _, b := range bills {
		existing, seen := billByTenant[b.TenantID]
		if !seen || (existing.Type != models.BillRent && b.Type == models.BillRent) {
			billByTenant[b.TenantID] = b
		}
	}

	rows := make([]ReportRow, 0, len(tenants))
	for _, t := range tenants {
		row := ReportRow{
			TenantID: t.ID,
			Name:     t.Name,
			RoomNo:   t.RoomNo,
			Phone:    t.Phone,
			Email:    t.Email,
			Status:   StatusNotPaid,
			Amount:   decimal.Zero,
			Source:   SourceNone,
		}

		if proof, ok := proofByTenant[t.ID]; ok {
			row.Status = string(proof.Status)
			row.Amount = proof.Amount
			row.ProofURL = proof.ProofURL
			row.RentID = proof.ID
			row.Source = SourceManual
		} else if bill, ok := billByTenant[t.ID]; ok {
			row.Amount = bill.Amount
			row.RentID = bill.ID
			row.Source = SourceBill
			if bill.Status == models.BillPaid {
				row.Status = StatusPaidOnline
			} else {
				row.Status = StatusUnpaid
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].RoomNo != rows[j].RoomNo {
			return rows[i].RoomNo < rows[j].RoomNo
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// ReportSummary totals for a report.
type ReportSummary struct {
	Tenants   int             `json:"tenants"`
	Paid      int             `json:"paid"`
	Pending   int             `json:"pending"`
	Unpaid    int             `json:"unpaid"`
	Collected decimal.Decimal `json:"collected"`
}

// Summarize counts rows by outcome. Approved proofs and online payments count as paid.
func Summarize(rows []ReportRow) ReportSummary {
	sum := ReportSummary{Tenants: len(rows), Collected: decimal.Zero}
	for _, r := range rows {
		switch r.Status {
		case string(models.ProofApproved), StatusPaidOnline:
			sum.Paid++
			sum.Collected = sum.Collected.Add(r.Amount)
		case string(models.ProofPending):
			sum.Pending++
		default:
			sum.Unpaid++
		}
	}
	return sum
}
