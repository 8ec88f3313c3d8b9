package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pg-hostel/metrics"
	"pg-hostel/models"
)

const maxRoomUpdateAttempts = 5

// OccupancyService keeps Room.CurrentTenants, OccupantCount and Status in step
// with the tenants assigned to each room.
type OccupancyService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewOccupancyService creates an occupancy service.
func NewOccupancyService(db *gorm.DB, logger *zap.Logger, m *metrics.Metrics) *OccupancyService {
	return &OccupancyService{
		db:      db,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Occupant a tenant listed in a room.
type Occupant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomView a room with its occupants' names resolved.
type RoomView struct {
	models.Room
	Occupants []Occupant `json:"occupants"`
}

// Assign places a tenant who has no room in a room. Tenants already living
// elsewhere must be moved with Transfer.
func (s *OccupancyService) Assign(ctx context.Context, tenantID, roomNo string) (*models.Room, error) {
	var (
		room   *models.Room
		tenant models.Tenant
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tenant, "id = ?", tenantID).Error; err != nil {
			return lookupErr(err, "tenant", tenantID)
		}
		if tenant.RoomNo != "" && tenant.RoomNo != roomNo {
			return invalid("room_no", "tenant already assigned to room "+tenant.RoomNo+"; use transfer")
		}
		var err error
		room, err = s.assignTx(tx, &tenant, roomNo)
		return err
	})
	if err != nil {
		s.metrics.Occupancy(models.OperationAssign, "failed")
		return nil, err
	}
	s.metrics.Occupancy(models.OperationAssign, "ok")
	s.recordOperation(ctx, room, &tenant, models.OperationAssign)
	return room, nil
}

// Release removes a tenant from a room. Releasing a tenant who is not listed is a no-op.
func (s *OccupancyService) Release(ctx context.Context, tenantID, roomNo string) (*models.Room, error) {
	var room *models.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		room, err = s.releaseTx(tx, tenantID, roomNo)
		return err
	})
	if err != nil {
		s.metrics.Occupancy(models.OperationRelease, "failed")
		return nil, err
	}
	s.metrics.Occupancy(models.OperationRelease, "ok")
	s.recordOperation(ctx, room, &models.Tenant{ID: tenantID}, models.OperationRelease)
	return room, nil
}

// Transfer moves a tenant to another room. The destination is checked before the
// source room is touched, and both writes commit together.
func (s *OccupancyService) Transfer(ctx context.Context, tenantID, toRoom string) (*models.Tenant, error) {
	var (
		tenant   models.Tenant
		fromRoom string
		source   *models.Room
		target   *models.Room
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tenant, "id = ?", tenantID).Error; err != nil {
			return lookupErr(err, "tenant", tenantID)
		}
		fromRoom = tenant.RoomNo
		if fromRoom == toRoom {
			return invalid("new_room_no", "tenant already lives in room "+toRoom)
		}

		var dest models.Room
		if err := tx.First(&dest, "room_no = ?", toRoom).Error; err != nil {
			return lookupErr(err, "target room", toRoom)
		}
		if dest.IsFull() {
			return fmt.Errorf("room %s: %w", toRoom, ErrTargetFull)
		}

		if fromRoom != "" {
			var err error
			source, err = s.releaseTx(tx, tenant.ID, fromRoom)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		var err error
		target, err = s.assignTx(tx, &tenant, toRoom)
		if errors.Is(err, ErrCapacityExceeded) {
			return fmt.Errorf("room %s: %w", toRoom, ErrTargetFull)
		}
		return err
	})
	if err != nil {
		s.metrics.Occupancy("transfer", "failed")
		return nil, err
	}

	s.metrics.Occupancy("transfer", "ok")
	if source != nil {
		s.recordOperation(ctx, source, &tenant, models.OperationRelease)
	}
	s.recordOperation(ctx, target, &tenant, models.OperationAssign)
	s.logger.Info("tenant transferred",
		zap.String("tenant_id", tenant.ID),
		zap.String("from", fromRoom),
		zap.String("to", toRoom))
	return &tenant, nil
}

// Reconcile drops occupant references that no longer resolve to a tenant living in
// the room, recomputes count and status, and writes only the rooms that disagree.
// It returns the number of rooms corrected.
func (s *OccupancyService) Reconcile(ctx context.Context) (int, error) {
	db := s.db.WithContext(ctx)

	var rooms []models.Room
	if err := db.Order("room_no").Find(&rooms).Error; err != nil {
		return 0, fmt.Errorf("load rooms: %w", err)
	}

	var tenants []models.Tenant
	if err := db.Select("id", "room_no").Find(&tenants).Error; err != nil {
		return 0, fmt.Errorf("load tenants: %w", err)
	}
	homes := make(map[string]string, len(tenants))
	for _, t := range tenants {
		homes[t.ID] = t.RoomNo
	}

	return s.reconcileRooms(ctx, rooms, homes)
}

// reconcileRooms repairs rooms against a snapshot of tenant homes. The snapshot
// only picks which rooms need a look; occupants are kept or dropped by reading
// each tenant's current room, so moves after the snapshot are not undone.
func (s *OccupancyService) reconcileRooms(ctx context.Context, rooms []models.Room, homes map[string]string) (int, error) {
	db := s.db.WithContext(ctx)

	// tenants created after the snapshot are looked up individually
	resolve := func(id string) (string, bool) {
		if room, ok := homes[id]; ok {
			return room, true
		}
		home, found, err := currentHome(db, id)
		return home, found && err == nil
	}

	corrected := 0
	for _, room := range rooms {
		if err := ctx.Err(); err != nil {
			return corrected, err
		}
		if room.IsConsistent() && validOccupants(room, resolve) {
			continue
		}

		before := room
		updated, changed, err := updateRoom(db, room.RoomNo, func(r *models.Room) error {
			kept := make([]string, 0, len(r.CurrentTenants))
			seen := make(map[string]bool, len(r.CurrentTenants))
			for _, id := range r.CurrentTenants {
				if id == "" || seen[id] {
					continue
				}
				home, found, err := currentHome(db, id)
				if err != nil {
					return err
				}
				if found && home == r.RoomNo {
					kept = append(kept, id)
					seen[id] = true
				}
			}
			r.SetOccupants(kept)
			return nil
		})
		if err != nil {
			s.logger.Error("room reconciliation failed", zap.String("room_no", room.RoomNo), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		corrected++
		s.logger.Info("room reconciled",
			zap.String("room_no", updated.RoomNo),
			zap.Int("count_before", before.OccupantCount),
			zap.Int("count_after", updated.OccupantCount),
			zap.String("status_before", string(before.Status)),
			zap.String("status_after", string(updated.Status)))
	}

	s.metrics.RoomsCorrected(corrected)
	s.logger.Info("reconciliation complete", zap.Int("rooms_checked", len(rooms)), zap.Int("rooms_updated", corrected))
	return corrected, nil
}

// currentHome reads the tenant's room as stored now. found is false when the
// tenant no longer exists.
func currentHome(db *gorm.DB, tenantID string) (home string, found bool, err error) {
	var t models.Tenant
	err = db.Select("id", "room_no").First(&t, "id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load tenant %s: %w", tenantID, err)
	}
	return t.RoomNo, true, nil
}

func validOccupants(room models.Room, resolve func(string) (string, bool)) bool {
	seen := make(map[string]bool, len(room.CurrentTenants))
	for _, id := range room.CurrentTenants {
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
		if home, ok := resolve(id); !ok || home != room.RoomNo {
			return false
		}
	}
	return true
}

// SeedRooms inserts the fixed room layout, skipping rooms that already exist.
func (s *OccupancyService) SeedRooms(ctx context.Context) (int, error) {
	created := 0
	for _, room := range models.GetDefaultRooms() {
		room := room
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&room)
		if res.Error != nil {
			return created, fmt.Errorf("seed room %s: %w", room.RoomNo, res.Error)
		}
		created += int(res.RowsAffected)
	}
	if created > 0 {
		s.logger.Info("rooms seeded", zap.Int("created", created))
	}
	return created, nil
}

// UpdatePrice sets a room's monthly rent.
func (s *OccupancyService) UpdatePrice(ctx context.Context, roomNo string, price decimal.Decimal) (*models.Room, error) {
	if !price.IsPositive() {
		return nil, invalid("price", "must be greater than zero")
	}
	db := s.db.WithContext(ctx)
	var room models.Room
	if err := db.First(&room, "room_no = ?", roomNo).Error; err != nil {
		return nil, lookupErr(err, "room", roomNo)
	}
	price = price.Round(2)
	if err := db.Model(&room).Update("price", price).Error; err != nil {
		return nil, err
	}
	room.Price = &price
	return &room, nil
}

// GetRoom returns a single room.
func (s *OccupancyService) GetRoom(ctx context.Context, roomNo string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, "room_no = ?", roomNo).Error; err != nil {
		return nil, lookupErr(err, "room", roomNo)
	}
	return &room, nil
}

// ListRooms returns every room ordered by number with occupant names.
func (s *OccupancyService) ListRooms(ctx context.Context) ([]RoomView, error) {
	db := s.db.WithContext(ctx)
	var rooms []models.Room
	if err := db.Order("room_no").Find(&rooms).Error; err != nil {
		return nil, err
	}

	var ids []string
	for _, r := range rooms {
		ids = append(ids, r.CurrentTenants...)
	}
	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		var tenants []models.Tenant
		if err := db.Select("id", "name").Where("id IN ?", ids).Find(&tenants).Error; err != nil {
			return nil, err
		}
		for _, t := range tenants {
			names[t.ID] = t.Name
		}
	}

	views := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		v := RoomView{Room: r, Occupants: []Occupant{}}
		for _, id := range r.CurrentTenants {
			if name, ok := names[id]; ok {
				v.Occupants = append(v.Occupants, Occupant{ID: id, Name: name})
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// AvailableRooms returns rooms with at least one free bed.
func (s *OccupancyService) AvailableRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).
		Where("occupant_count < ?", models.RoomCapacity).
		Order("room_no").
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// assignTx adds the tenant to the room and points the tenant at it.
func (s *OccupancyService) assignTx(tx *gorm.DB, tenant *models.Tenant, roomNo string) (*models.Room, error) {
	room, _, err := updateRoom(tx, roomNo, func(r *models.Room) error {
		if r.HasOccupant(tenant.ID) {
			return nil
		}
		if r.IsFull() {
			return fmt.Errorf("room %s: %w", roomNo, ErrCapacityExceeded)
		}
		ids := append(append([]string{}, r.CurrentTenants...), tenant.ID)
		r.SetOccupants(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&models.Tenant{}).Where("id = ?", tenant.ID).Update("room_no", roomNo).Error; err != nil {
		return nil, fmt.Errorf("update tenant room: %w", err)
	}
	tenant.RoomNo = roomNo
	return room, nil
}

// releaseTx removes the tenant id from the room's occupant list.
func (s *OccupancyService) releaseTx(tx *gorm.DB, tenantID, roomNo string) (*models.Room, error) {
	room, _, err := updateRoom(tx, roomNo, func(r *models.Room) error {
		ids := make([]string, 0, len(r.CurrentTenants))
		for _, id := range r.CurrentTenants {
			if id != tenantID {
				ids = append(ids, id)
			}
		}
		r.SetOccupants(ids)
		return nil
	})
	return room, err
}

// updateRoom applies mutate to a fresh copy of the room and writes it back with a
// conditional update on the version column, retrying when another writer won.
// The returned bool reports whether anything was written.
func updateRoom(tx *gorm.DB, roomNo string, mutate func(*models.Room) error) (*models.Room, bool, error) {
	for attempt := 0; attempt < maxRoomUpdateAttempts; attempt++ {
		var room models.Room
		if err := tx.First(&room, "room_no = ?", roomNo).Error; err != nil {
			return nil, false, lookupErr(err, "room", roomNo)
		}

		before := append([]string{}, room.CurrentTenants...)
		wasConsistent := room.IsConsistent()
		if err := mutate(&room); err != nil {
			return nil, false, err
		}
		if wasConsistent && sameIDs(before, room.CurrentTenants) {
			return &room, false, nil
		}

		res := tx.Model(&models.Room{}).
			Where("room_no = ? AND version = ?", room.RoomNo, room.Version).
			Updates(map[string]interface{}{
				"current_tenants": room.CurrentTenants,
				"occupant_count":  room.OccupantCount,
				"status":          room.Status,
				"version":         room.Version + 1,
			})
		if res.Error != nil {
			return nil, false, fmt.Errorf("update room %s: %w", roomNo, res.Error)
		}
		if res.RowsAffected == 1 {
			room.Version++
			return &room, true, nil
		}
	}
	return nil, false, fmt.Errorf("room %s: %w", roomNo, errConcurrentUpdate)
}

// recordOperation appends to the room operation log. Failures do not affect the caller.
func (s *OccupancyService) recordOperation(ctx context.Context, room *models.Room, tenant *models.Tenant, op string) {
	if room == nil {
		return
	}
	entry := models.RoomOperation{
		RoomNo:        room.RoomNo,
		TenantID:      tenant.ID,
		TenantName:    tenant.Name,
		OperationType: op,
		OperationTime: s.now(),
		OccupantCount: room.OccupantCount,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.Warn("failed to record room operation",
			zap.String("room_no", room.RoomNo),
			zap.String("operation", op),
			zap.Error(err))
	}
}

// Operations returns the most recent occupancy changes for a room.
func (s *OccupancyService) Operations(ctx context.Context, roomNo string, limit int) ([]models.RoomOperation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var ops []models.RoomOperation
	err := s.db.WithContext(ctx).
		Where("room_no = ?", roomNo).
		Order("operation_time DESC, id DESC").
		Limit(limit).
		Find(&ops).Error
	return ops, err
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func lookupErr(err error, what, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what, key)
	}
	return fmt.Errorf("load %s %q: %w", what, key, err)
}
