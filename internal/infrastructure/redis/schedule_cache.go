package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// ScheduleCacheInterface は残席数キャッシュの抽象
type ScheduleCacheInterface interface {
	GetRemainingSeats(ctx context.Context, scheduleID string) (int, error)
	SetRemainingSeats(ctx context.Context, scheduleID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, scheduleID string) error
}

// ScheduleCache は開催枠の残席数キャッシュを管理する
// 予約・キャンセル・期限切れで残席が変わるたびに Invalidate される
type ScheduleCache struct {
	client *redis.Client
}

// NewScheduleCache は新しいScheduleCacheインスタンスを作成する
func NewScheduleCache(client *redis.Client) *ScheduleCache {
	return &ScheduleCache{client: client}
}

// GetRemainingSeats は残席数をキャッシュから取得する
func (c *ScheduleCache) GetRemainingSeats(ctx context.Context, scheduleID string) (int, error) {
	val, err := c.client.Get(ctx, c.remainingSeatsKey(scheduleID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetRemainingSeats は残席数をキャッシュに保存する
func (c *ScheduleCache) SetRemainingSeats(ctx context.Context, scheduleID string, count int, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.remainingSeatsKey(scheduleID), count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は開催枠のキャッシュを無効化する
func (c *ScheduleCache) Invalidate(ctx context.Context, scheduleID string) error {
	if err := c.client.Del(ctx, c.remainingSeatsKey(scheduleID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *ScheduleCache) remainingSeatsKey(scheduleID string) string {
	return fmt.Sprintf("schedules:remaining:%s", scheduleID)
}
