package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pg-hostel/metrics"
	"pg-hostel/models"
)

func newOccupancy(t *testing.T) *OccupancyService {
	t.Helper()
	return NewOccupancyService(newTestDB(t), zap.NewNop(), metrics.NewMetrics(prometheus.NewRegistry()))
}

func TestAssignFillsRoomUpToCapacity(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	db := svc.db
	createRoom(t, db, "101", nil)

	joined := time.Now()
	a := createTenant(t, db, "Asha", "", joined)
	b := createTenant(t, db, "Bala", "", joined)
	c := createTenant(t, db, "Chitra", "", joined)

	room, err := svc.Assign(ctx, a.ID, "101")
	require.NoError(t, err)
	assert.Equal(t, 1, room.OccupantCount)
	assert.Equal(t, models.RoomPartiallyOccupied, room.Status)

	room, err = svc.Assign(ctx, b.ID, "101")
	require.NoError(t, err)
	assert.Equal(t, 2, room.OccupantCount)
	assert.Equal(t, models.RoomOccupied, room.Status)

	_, err = svc.Assign(ctx, c.ID, "101")
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	stored := loadRoom(t, db, "101")
	requireConsistent(t, stored)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, []string(stored.CurrentTenants))

	var tenant models.Tenant
	require.NoError(t, db.First(&tenant, "id = ?", c.ID).Error)
	assert.Empty(t, tenant.RoomNo)
	require.NoError(t, db.First(&tenant, "id = ?", a.ID).Error)
	assert.Equal(t, "101", tenant.RoomNo)
}

func TestAssignNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	createRoom(t, svc.db, "101", nil)
	tenant := createTenant(t, svc.db, "Asha", "", time.Now())

	_, err := svc.Assign(ctx, tenant.ID, "999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Assign(ctx, "missing", "101")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignTwiceKeepsSingleEntry(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	createRoom(t, svc.db, "101", nil)
	tenant := createTenant(t, svc.db, "Asha", "", time.Now())

	_, err := svc.Assign(ctx, tenant.ID, "101")
	require.NoError(t, err)
	room, err := svc.Assign(ctx, tenant.ID, "101")
	require.NoError(t, err)
	assert.Equal(t, 1, room.OccupantCount)
}

func TestAssignRejectsTenantHousedElsewhere(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	a := createTenant(t, svc.db, "Asha", "101", time.Now())
	createRoom(t, svc.db, "101", nil, a.ID)
	createRoom(t, svc.db, "102", nil)

	_, err := svc.Assign(ctx, a.ID, "102")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, []string{a.ID}, []string(loadRoom(t, svc.db, "101").CurrentTenants))
	assert.Empty(t, loadRoom(t, svc.db, "102").CurrentTenants)
	var tenant models.Tenant
	require.NoError(t, svc.db.First(&tenant, "id = ?", a.ID).Error)
	assert.Equal(t, "101", tenant.RoomNo)

	// Transfer is the way to move
	_, err = svc.Transfer(ctx, a.ID, "102")
	require.NoError(t, err)
	assert.Empty(t, loadRoom(t, svc.db, "101").CurrentTenants)
	assert.Equal(t, []string{a.ID}, []string(loadRoom(t, svc.db, "102").CurrentTenants))
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	a := createTenant(t, svc.db, "Asha", "101", time.Now())
	b := createTenant(t, svc.db, "Bala", "101", time.Now())
	createRoom(t, svc.db, "101", nil, a.ID, b.ID)

	room, err := svc.Release(ctx, a.ID, "101")
	require.NoError(t, err)
	assert.Equal(t, 1, room.OccupantCount)
	assert.Equal(t, models.RoomPartiallyOccupied, room.Status)

	// releasing someone who is not listed changes nothing
	room, err = svc.Release(ctx, "nobody", "101")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, []string(room.CurrentTenants))

	stored := loadRoom(t, svc.db, "101")
	requireConsistent(t, stored)
	assert.Equal(t, 1, stored.OccupantCount)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves tenant between rooms", func(t *testing.T) {
		svc := newOccupancy(t)
		a := createTenant(t, svc.db, "Asha", "101", time.Now())
		createRoom(t, svc.db, "101", nil, a.ID)
		createRoom(t, svc.db, "102", nil)

		tenant, err := svc.Transfer(ctx, a.ID, "102")
		require.NoError(t, err)
		assert.Equal(t, "102", tenant.RoomNo)

		from := loadRoom(t, svc.db, "101")
		to := loadRoom(t, svc.db, "102")
		requireConsistent(t, from)
		requireConsistent(t, to)
		assert.Equal(t, 0, from.OccupantCount)
		assert.Equal(t, models.RoomVacant, from.Status)
		assert.Equal(t, []string{a.ID}, []string(to.CurrentTenants))
	})

	t.Run("full target leaves source untouched", func(t *testing.T) {
		svc := newOccupancy(t)
		a := createTenant(t, svc.db, "Asha", "101", time.Now())
		b := createTenant(t, svc.db, "Bala", "101", time.Now())
		c := createTenant(t, svc.db, "Chitra", "102", time.Now())
		d := createTenant(t, svc.db, "Dev", "102", time.Now())
		createRoom(t, svc.db, "101", nil, a.ID, b.ID)
		createRoom(t, svc.db, "102", nil, c.ID, d.ID)

		_, err := svc.Transfer(ctx, a.ID, "102")
		assert.ErrorIs(t, err, ErrTargetFull)

		from := loadRoom(t, svc.db, "101")
		assert.ElementsMatch(t, []string{a.ID, b.ID}, []string(from.CurrentTenants))
		assert.Equal(t, models.RoomOccupied, from.Status)
	})

	t.Run("unknown target", func(t *testing.T) {
		svc := newOccupancy(t)
		a := createTenant(t, svc.db, "Asha", "101", time.Now())
		createRoom(t, svc.db, "101", nil, a.ID)

		_, err := svc.Transfer(ctx, a.ID, "999")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, loadRoom(t, svc.db, "101").OccupantCount)
	})

	t.Run("same room is invalid", func(t *testing.T) {
		svc := newOccupancy(t)
		a := createTenant(t, svc.db, "Asha", "101", time.Now())
		createRoom(t, svc.db, "101", nil, a.ID)

		_, err := svc.Transfer(ctx, a.ID, "101")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	db := svc.db

	a := createTenant(t, db, "Asha", "101", time.Now())
	b := createTenant(t, db, "Bala", "102", time.Now())

	// dangling id and a stale count
	broken := models.Room{
		RoomNo:         "101",
		Capacity:       2,
		CurrentTenants: pq.StringArray{a.ID, "ghost"},
		OccupantCount:  2,
		Status:         models.RoomOccupied,
	}
	require.NoError(t, db.Create(&broken).Error)
	// count disagrees with the list
	stale := models.Room{
		RoomNo:         "102",
		Capacity:       2,
		CurrentTenants: pq.StringArray{b.ID},
		OccupantCount:  2,
		Status:         models.RoomOccupied,
	}
	require.NoError(t, db.Create(&stale).Error)
	createRoom(t, db, "103", nil)

	corrected, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, corrected)

	for _, no := range []string{"101", "102", "103"} {
		requireConsistent(t, loadRoom(t, db, no))
	}
	assert.Equal(t, []string{a.ID}, []string(loadRoom(t, db, "101").CurrentTenants))
	assert.Equal(t, models.RoomPartiallyOccupied, loadRoom(t, db, "102").Status)

	corrected, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, corrected)
}

func TestReconcileDropsTenantsLivingElsewhere(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	a := createTenant(t, svc.db, "Asha", "102", time.Now())
	createRoom(t, svc.db, "101", nil, a.ID)
	createRoom(t, svc.db, "102", nil, a.ID)

	corrected, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
	assert.Empty(t, loadRoom(t, svc.db, "101").CurrentTenants)
	assert.Equal(t, 1, loadRoom(t, svc.db, "102").OccupantCount)
}

func TestReconcileKeepsTenantMovedAfterSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	db := svc.db

	a := createTenant(t, db, "Asha", "101", time.Now())
	createRoom(t, db, "101", nil, a.ID)
	createRoom(t, db, "102", nil)
	rooms := []models.Room{loadRoom(t, db, "101"), loadRoom(t, db, "102")}
	homes := map[string]string{a.ID: "101"}

	// the tenant moves between the snapshot and the room pass
	_, err := svc.Transfer(ctx, a.ID, "102")
	require.NoError(t, err)
	rooms[1] = loadRoom(t, db, "102")

	corrected, err := svc.reconcileRooms(ctx, rooms, homes)
	require.NoError(t, err)
	assert.Zero(t, corrected)

	moved := loadRoom(t, db, "102")
	requireConsistent(t, moved)
	assert.Equal(t, []string{a.ID}, []string(moved.CurrentTenants))
	assert.Empty(t, loadRoom(t, db, "101").CurrentTenants)
}

func TestConcurrentAssignNeverOverfills(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	createRoom(t, svc.db, "101", nil)

	var tenants []models.Tenant
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		tenants = append(tenants, createTenant(t, svc.db, name, "", time.Now()))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for _, tenant := range tenants {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Assign(ctx, id, "101")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrCapacityExceeded):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(tenant.ID)
	}
	wg.Wait()

	assert.Equal(t, 2, ok)
	assert.Equal(t, 4, full)
	room := loadRoom(t, svc.db, "101")
	requireConsistent(t, room)
	assert.Equal(t, 2, room.OccupantCount)
}

func TestSeedRoomsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)

	created, err := svc.SeedRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SeedFloors*models.SeedRoomsPerFloor, created)

	created, err = svc.SeedRooms(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	rooms, err := svc.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 15)
	assert.Equal(t, "101", rooms[0].RoomNo)
	assert.Equal(t, "305", rooms[14].RoomNo)
	for _, r := range rooms {
		assert.Equal(t, models.RoomVacant, r.Status)
	}
}

func TestUpdatePrice(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	createRoom(t, svc.db, "101", nil)

	_, err := svc.UpdatePrice(ctx, "101", dec("0"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdatePrice(ctx, "999", dec("2000"))
	assert.ErrorIs(t, err, ErrNotFound)

	room, err := svc.UpdatePrice(ctx, "101", dec("2250.499"))
	require.NoError(t, err)
	assert.True(t, room.Price.Equal(dec("2250.5")))
	assert.True(t, loadRoom(t, svc.db, "101").Price.Equal(dec("2250.5")))
}

func TestAvailableRoomsAndOperations(t *testing.T) {
	ctx := context.Background()
	svc := newOccupancy(t)
	createRoom(t, svc.db, "101", nil)
	createRoom(t, svc.db, "102", nil)
	a := createTenant(t, svc.db, "Asha", "", time.Now())
	b := createTenant(t, svc.db, "Bala", "", time.Now())

	_, err := svc.Assign(ctx, a.ID, "101")
	require.NoError(t, err)
	_, err = svc.Assign(ctx, b.ID, "101")
	require.NoError(t, err)

	rooms, err := svc.AvailableRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "102", rooms[0].RoomNo)

	ops, err := svc.Operations(ctx, "101", 10)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OperationAssign, ops[0].OperationType)
}
