package idempotency

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settlewise/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, ttl), mr
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		SettlementID:     "s1",
		ClosedAt:         1700000000,
		ClosedBy:         "u1",
		IdempotencyToken: "tok-1",
		Balances: []models.ParticipantBalance{
			{ParticipantID: "a", AmountCents: 2000},
			{ParticipantID: "b", AmountCents: -1000},
			{ParticipantID: "c", AmountCents: -1000},
		},
		Transfers: []models.Transfer{
			{From: "b", To: "a", AmountCents: 1000},
			{From: "c", To: "a", AmountCents: 1000},
		},
	}
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Hour)

	_, ok, err := cache.Lookup(ctx, "s1", "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)

	want := testSnapshot()
	require.NoError(t, cache.Remember(ctx, want))
	assert.True(t, mr.Exists("settlewise:finalize:s1:tok-1"))

	got, ok, err := cache.Lookup(ctx, "s1", "tok-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = cache.Lookup(ctx, "s1", "other")
	require.NoError(t, err)
	assert.False(t, ok, "tokens are not interchangeable")

	_, ok, err = cache.Lookup(ctx, "s2", "tok-1")
	require.NoError(t, err)
	assert.False(t, ok, "tokens are scoped per settlement")
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)

	require.NoError(t, cache.Remember(ctx, testSnapshot()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Lookup(ctx, "s1", "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_SkipsTokenlessSnapshots(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)

	snapshot := testSnapshot()
	snapshot.IdempotencyToken = ""
	require.NoError(t, cache.Remember(ctx, snapshot))
	assert.Empty(t, mr.Keys())
}

func TestRedisCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, ok, err := cache.Lookup(ctx, "s1", "tok-1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, cache.Remember(ctx, testSnapshot()))
}

func TestRedisCache_NilIsEmpty(t *testing.T) {
	var cache *RedisCache
	_, ok, err := cache.Lookup(context.Background(), "s1", "tok-1")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Remember(context.Background(), testSnapshot()))
}
