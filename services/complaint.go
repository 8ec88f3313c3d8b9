package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pg-hostel/models"
)

// ComplaintService stores tenant complaints and admin notices.
type ComplaintService struct {
	db     *gorm.DB
	hub    *NoticeHub
	logger *zap.Logger
}

// NewComplaintService creates the service. hub may be nil.
func NewComplaintService(db *gorm.DB, hub *NoticeHub, logger *zap.Logger) *ComplaintService {
	return &ComplaintService{db: db, hub: hub, logger: logger}
}

// Lodge records a complaint for the tenant's current room.
func (s *ComplaintService) Lodge(ctx context.Context, tenantID, description, imageURL string) (*models.Complaint, error) {
	if strings.TrimSpace(description) == "" {
		return nil, invalid("description", "is required")
	}
	db := s.db.WithContext(ctx)

	var tenant models.Tenant
	if err := db.First(&tenant, "id = ?", tenantID).Error; err != nil {
		return nil, lookupErr(err, "tenant", tenantID)
	}
	roomNo := tenant.RoomNo
	if roomNo == "" {
		roomNo = "N/A"
	}

	complaint := models.Complaint{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		RoomNo:      roomNo,
		Description: strings.TrimSpace(description),
		ImageURL:    imageURL,
		Status:      models.ComplaintOpen,
	}
	if err := db.Create(&complaint).Error; err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	s.logger.Info("complaint lodged", zap.String("tenant_id", tenant.ID), zap.String("room_no", roomNo))
	return &complaint, nil
}

// ListComplaints returns every complaint with its tenant, newest first.
func (s *ComplaintService) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.db.WithContext(ctx).Preload("Tenant").Order("created_at DESC").Find(&complaints).Error
	return complaints, err
}

// TenantComplaints returns one tenant's complaints, newest first.
func (s *ComplaintService) TenantComplaints(ctx context.Context, tenantID string) ([]models.Complaint, error) {
	var complaints []models.Complaint
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&complaints).Error
	return complaints, err
}

// SetStatus moves a complaint between Open and Resolved.
func (s *ComplaintService) SetStatus(ctx context.Context, id string, status models.ComplaintStatus) (*models.Complaint, error) {
	if status != models.ComplaintOpen && status != models.ComplaintResolved {
		return nil, invalid("status", "must be Open or Resolved")
	}
	db := s.db.WithContext(ctx)

	var complaint models.Complaint
	if err := db.First(&complaint, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "complaint", id)
	}
	if err := db.Model(&complaint).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update complaint: %w", err)
	}
	complaint.Status = status
	return &complaint, nil
}

// PostNotice creates a notice and pushes it to live subscribers.
func (s *ComplaintService) PostNotice(ctx context.Context, title, message, createdBy string) (*models.Notice, error) {
	if strings.TrimSpace(title) == "" {
		return nil, invalid("title", "is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, invalid("message", "is required")
	}
	if createdBy == "" {
		createdBy = "Admin"
	}

	notice := models.Notice{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Message:   strings.TrimSpace(message),
		CreatedBy: createdBy,
	}
	if err := s.db.WithContext(ctx).Create(&notice).Error; err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	if s.hub != nil {
		delivered := s.hub.Publish(notice)
		s.logger.Info("notice posted", zap.String("notice_id", notice.ID), zap.Int("delivered", delivered))
	}
	return &notice, nil
}

// ListNotices returns notices, newest first.
func (s *ComplaintService) ListNotices(ctx context.Context) ([]models.Notice, error) {
	var notices []models.Notice
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&notices).Error
	return notices, err
}

// NoticeHub fans new notices out to subscribers. Slow subscribers miss
// notices rather than block the publisher.
type NoticeHub struct {
	mu     sync.Mutex
	subs   map[chan models.Notice]struct{}
	buffer int
}

// NewNoticeHub creates a hub whose subscriber channels hold buffer notices.
func NewNoticeHub(buffer int) *NoticeHub {
	if buffer <= 0 {
		buffer = 8
	}
	return &NoticeHub{subs: make(map[chan models.Notice]struct{}), buffer: buffer}
}

// Subscribe returns a channel of new notices and a function that ends the subscription.
func (h *NoticeHub) Subscribe() (<-chan models.Notice, func()) {
	ch := make(chan models.Notice, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends n to every subscriber with room in its buffer and returns how many received it.
func (h *NoticeHub) Publish(n models.Notice) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for ch := range h.subs {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions.
func (h *NoticeHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
