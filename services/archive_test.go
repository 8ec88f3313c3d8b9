package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pg-hostel/models"
)

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	occupancy := newOccupancy(t)
	db := occupancy.db
	archive := NewArchiveService(db, occupancy, zap.NewNop())

	joined := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	a := createTenant(t, db, "Asha", "101", joined)
	b := createTenant(t, db, "Bala", "101", joined)
	createRoom(t, db, "101", nil, a.ID, b.ID)

	past, err := archive.Checkout(ctx, a.ID, "moved to another city")
	require.NoError(t, err)
	assert.Equal(t, a.ID, past.OriginalID)
	assert.Equal(t, a.Name, past.Name)
	assert.Equal(t, a.Email, past.Email)
	assert.Equal(t, "101", past.RoomNo)
	assert.Equal(t, "moved to another city", past.ReasonForLeaving)
	assert.True(t, past.JoinedAt.Equal(joined))
	assert.False(t, past.LeftAt.IsZero())

	var count int64
	require.NoError(t, db.Model(&models.Tenant{}).Where("id = ?", a.ID).Count(&count).Error)
	assert.Zero(t, count)

	room := loadRoom(t, db, "101")
	requireConsistent(t, room)
	assert.Equal(t, 1, room.OccupantCount)
	assert.Equal(t, []string{b.ID}, []string(room.CurrentTenants))

	history, err := archive.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, a.ID, history[0].OriginalID)
}

func TestCheckoutUnknownTenant(t *testing.T) {
	occupancy := newOccupancy(t)
	archive := NewArchiveService(occupancy.db, occupancy, zap.NewNop())

	_, err := archive.Checkout(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := archive.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCheckoutWithMissingRoomStillArchives(t *testing.T) {
	occupancy := newOccupancy(t)
	archive := NewArchiveService(occupancy.db, occupancy, zap.NewNop())
	a := createTenant(t, occupancy.db, "Asha", "404", time.Now())

	past, err := archive.Checkout(context.Background(), a.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "404", past.RoomNo)
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	occupancy := newOccupancy(t)
	db := occupancy.db
	archive := NewArchiveService(db, occupancy, zap.NewNop())

	a := createTenant(t, db, "Asha", "", time.Now())
	b := createTenant(t, db, "Bala", "", time.Now())

	archive.now = func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }
	_, err := archive.Checkout(ctx, a.ID, "")
	require.NoError(t, err)
	archive.now = func() time.Time { return time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC) }
	_, err = archive.Checkout(ctx, b.ID, "")
	require.NoError(t, err)

	history, err := archive.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Bala", history[0].Name)
	assert.Equal(t, "N/A", history[1].RoomNo)
}
