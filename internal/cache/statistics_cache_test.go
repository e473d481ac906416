package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *StatisticsCache {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	cache := NewStatisticsCache(client)
	cache.key = KeyStatistics + ":test:" + t.Name()
	t.Cleanup(func() { _ = cache.Delete(context.Background()) })

	return cache
}

func TestStatisticsCache_RoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	missing, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, missing)

	stats := &model.Statistics{
		TotalTeachers:      2,
		TotalStudents:      3,
		SuspendedStudents:  1,
		ActiveStudents:     2,
		TotalRelationships: 4,
	}
	require.NoError(t, cache.Set(ctx, stats, time.Minute))

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, cached)

	require.NoError(t, cache.Delete(ctx))
	cached, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestStatisticsCache_ZeroTTLSkipsWrite(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &model.Statistics{TotalTeachers: 1}, 0))

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
