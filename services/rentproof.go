package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pg-hostel/models"
)

// RentProofService records rent paid outside the gateway and its review.
type RentProofService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRentProofService creates a rent proof service.
func NewRentProofService(db *gorm.DB, logger *zap.Logger) *RentProofService {
	return &RentProofService{db: db, logger: logger, now: time.Now}
}

// ProofSubmission a tenant's claim of a manual rent payment.
type ProofSubmission struct {
	TenantID string
	Month    string
	Year     int
	Amount   decimal.Decimal
	ProofURL string
}

// Submit stores a proof in the Pending state.
func (s *RentProofService) Submit(ctx context.Context, req ProofSubmission) (*models.RentProof, error) {
	if strings.TrimSpace(req.ProofURL) == "" {
		return nil, invalid("proof", "proof file is required")
	}
	if !req.Amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	month, year, err := resolvePeriod(req.Month, req.Year, s.now())
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var tenant models.Tenant
	if err := db.First(&tenant, "id = ?", req.TenantID).Error; err != nil {
		return nil, lookupErr(err, "tenant", req.TenantID)
	}

	proof := models.RentProof{
		ID:       uuid.NewString(),
		TenantID: tenant.ID,
		Month:    month,
		Year:     year,
		Amount:   req.Amount.Round(2),
		ProofURL: req.ProofURL,
		Status:   models.ProofPending,
	}
	if err := db.Create(&proof).Error; err != nil {
		return nil, fmt.Errorf("create rent proof: %w", err)
	}
	s.logger.Info("rent proof submitted",
		zap.String("tenant_id", tenant.ID),
		zap.String("month", month),
		zap.Int("year", year))
	return &proof, nil
}

// Review sets the review status of a proof.
func (s *RentProofService) Review(ctx context.Context, proofID string, status models.RentProofStatus) (*models.RentProof, error) {
	if !status.Valid() {
		return nil, invalid("status", "must be Pending, Approved or Rejected")
	}
	db := s.db.WithContext(ctx)

	var proof models.RentProof
	if err := db.First(&proof, "id = ?", proofID).Error; err != nil {
		return nil, lookupErr(err, "rent proof", proofID)
	}
	if err := db.Model(&proof).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update rent proof: %w", err)
	}
	proof.Status = status
	s.logger.Info("rent proof reviewed", zap.String("proof_id", proofID), zap.String("status", string(status)))
	return &proof, nil
}

// ListForTenant returns a tenant's proofs, newest first.
func (s *RentProofService) ListForTenant(ctx context.Context, tenantID string) ([]models.RentProof, error) {
	var proofs []models.RentProof
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&proofs).Error
	return proofs, err
}

// ListAll returns every proof for admins, newest first, optionally for one period.
func (s *RentProofService) ListAll(ctx context.Context, month string, year int) ([]models.RentProof, error) {
	q := s.db.WithContext(ctx).Model(&models.RentProof{})
	if month != "" {
		m, ok := ParseMonth(month)
		if !ok {
			return nil, invalid("month", "invalid month name")
		}
		q = q.Where("month = ?", m.String())
	}
	if year != 0 {
		q = q.Where("year = ?", year)
	}
	var proofs []models.RentProof
	err := q.Order("created_at DESC").Find(&proofs).Error
	return proofs, err
}
