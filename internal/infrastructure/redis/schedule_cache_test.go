package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client, err := NewClient(&Config{Host: "localhost", Port: "6379"})
	if err != nil {
		t.Skip("Redis not available")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestScheduleCache_RemainingSeats(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewScheduleCache(client)
	ctx := context.Background()
	scheduleID := "test-schedule-" + time.Now().Format("150405.000")
	t.Cleanup(func() { cache.Invalidate(ctx, scheduleID) })

	t.Run("キャッシュミス時はErrCacheMissを返す", func(t *testing.T) {
		_, err := cache.GetRemainingSeats(ctx, scheduleID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("キャッシュにセットした値を取得できる", func(t *testing.T) {
		require.NoError(t, cache.SetRemainingSeats(ctx, scheduleID, 7, 30*time.Second))

		count, err := cache.GetRemainingSeats(ctx, scheduleID)
		require.NoError(t, err)
		assert.Equal(t, 7, count)
	})

	t.Run("無効化後はキャッシュミスになる", func(t *testing.T) {
		require.NoError(t, cache.SetRemainingSeats(ctx, scheduleID, 3, 30*time.Second))
		require.NoError(t, cache.Invalidate(ctx, scheduleID))

		_, err := cache.GetRemainingSeats(ctx, scheduleID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("存在しないキーの無効化はエラーにならない", func(t *testing.T) {
		assert.NoError(t, cache.Invalidate(ctx, "non-existent-schedule"))
	})
}

func TestScheduleCache_Key(t *testing.T) {
	cache := &ScheduleCache{}
	assert.Equal(t, "schedules:remaining:sch-1", cache.remainingSeatsKey("sch-1"))
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "redis", Port: "6380"}
	assert.Equal(t, "redis:6380", cfg.Addr())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(&Config{URL: "://bad"})
	assert.Error(t, err)
}
