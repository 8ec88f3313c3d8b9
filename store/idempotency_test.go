package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore()
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ok, err := s.Claim(ctx, "payment:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "payment:1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must fail")

	ok, err = s.Claim(ctx, "payment:2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Release(ctx, "payment:1"))
	ok, err = s.Claim(ctx, "payment:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be claimed again")

	now = now.Add(2 * time.Hour)
	ok, err = s.Claim(ctx, "payment:2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be claimed again")
}

func TestMemoryIdempotencyStoreNoTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore()

	ok, err := s.Claim(ctx, "k", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	s.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	ok, err = s.Claim(ctx, "k", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Runs only when PG_TEST_REDIS_ADDR points at a disposable Redis.
func TestRedisIdempotencyStore(t *testing.T) {
	addr := os.Getenv("PG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PG_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisIdempotencyStore(addr, "", 0, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	defer s.Release(ctx, key)

	ok, err := s.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, key))
	ok, err = s.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
