package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pg-hostel/models"
)

// ArchiveService moves tenants who leave into the past tenants history.
type ArchiveService struct {
	db        *gorm.DB
	occupancy *OccupancyService
	logger    *zap.Logger
	now       func() time.Time
}

// NewArchiveService creates an archive service.
func NewArchiveService(db *gorm.DB, occupancy *OccupancyService, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{db: db, occupancy: occupancy, logger: logger, now: time.Now}
}

// Checkout archives the tenant, frees their bed and deletes the active record,
// all or nothing. Uploaded documents are left in place.
func (s *ArchiveService) Checkout(ctx context.Context, tenantID, reason string) (*models.PastTenant, error) {
	var (
		past   models.PastTenant
		tenant models.Tenant
		room   *models.Room
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tenant, "id = ?", tenantID).Error; err != nil {
			return lookupErr(err, "tenant", tenantID)
		}

		past = models.PastTenant{
			ID:               uuid.NewString(),
			OriginalID:       tenant.ID,
			Name:             tenant.Name,
			Email:            tenant.Email,
			Phone:            tenant.Phone,
			RoomNo:           tenant.RoomNo,
			IDType:           tenant.IDType,
			IDNumber:         tenant.IDNumber,
			IDProof:          tenant.IDProof,
			ProfilePhoto:     tenant.ProfilePhoto,
			Deposit:          tenant.Deposit,
			JoinedAt:         tenant.CreatedAt,
			LeftAt:           s.now(),
			ReasonForLeaving: reason,
		}
		if past.RoomNo == "" {
			past.RoomNo = "N/A"
		}
		if err := tx.Create(&past).Error; err != nil {
			return fmt.Errorf("archive tenant: %w", err)
		}

		if tenant.RoomNo != "" {
			var err error
			room, err = s.occupancy.releaseTx(tx, tenant.ID, tenant.RoomNo)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("release room %s: %w", tenant.RoomNo, err)
			}
		}

		if err := tx.Delete(&models.Tenant{}, "id = ?", tenant.ID).Error; err != nil {
			return fmt.Errorf("delete tenant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.occupancy.recordOperation(ctx, room, &tenant, models.OperationRelease)
	s.logger.Info("tenant checked out",
		zap.String("tenant_id", tenant.ID),
		zap.String("name", tenant.Name),
		zap.String("room_no", tenant.RoomNo))
	return &past, nil
}

// History returns archived tenants, most recent departure first.
func (s *ArchiveService) History(ctx context.Context) ([]models.PastTenant, error) {
	var past []models.PastTenant
	err := s.db.WithContext(ctx).Order("left_at DESC").Find(&past).Error
	return past, err
}
