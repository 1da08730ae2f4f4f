package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに実行する
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock は取得済みのロック
type Lock interface {
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

// LockManagerInterface はスケジュール単位の排他制御に使うロック取得の抽象
type LockManagerInterface interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error)
}

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// LockManager は分散ロックを管理する
type LockManager struct {
	client *redis.Client
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

// ScheduleLockKey は開催枠のロックキーを返す
func ScheduleLockKey(scheduleID string) string {
	return "schedule:" + scheduleID
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := uuid.New().String()

	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// AcquireLockWithRetry はリトライ付きでロックを取得する
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error) {
	return acquireWithRetry(ctx, maxRetries, retryDelay, func() (Lock, error) {
		return m.AcquireLock(ctx, key, ttl)
	})
}

// acquireWithRetry は取得済みのロックがある間だけ retryDelay 間隔で再試行する
// ロック基盤のエラーは再試行せずにそのまま返す
func acquireWithRetry(ctx context.Context, maxRetries int, retryDelay time.Duration, acquire func() (Lock, error)) (Lock, error) {
	lastErr := ErrLockNotAcquired
	for i := 0; i < maxRetries; i++ {
		lock, err := acquire()
		if err == nil {
			return lock, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// Release はロックを解放する
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を延長する
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("ロック延長に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	l.ttl = ttl
	return nil
}
