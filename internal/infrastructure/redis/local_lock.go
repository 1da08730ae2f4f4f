package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalLockManager はプロセス内で完結する LockManagerInterface の実装
// Redis を使わない単一プロセス構成で、予約・キャンセル・期限切れ処理・残席再計算を同じキーで直列化する
type LocalLockManager struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

type localEntry struct {
	token     string
	expiresAt time.Time
}

type localLock struct {
	manager *LocalLockManager
	key     string
	token   string
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{held: make(map[string]localEntry), now: time.Now}
}

// AcquireLock は期限切れでないロックがなければ取得する
func (m *LocalLockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.held[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrLockNotAcquired
	}
	token := uuid.New().String()
	m.held[key] = localEntry{token: token, expiresAt: now.Add(ttl)}
	return &localLock{manager: m, key: key, token: token}, nil
}

func (m *LocalLockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error) {
	return acquireWithRetry(ctx, maxRetries, retryDelay, func() (Lock, error) {
		return m.AcquireLock(ctx, key, ttl)
	})
}

// Release は自分が保持している場合のみ解放する
func (l *localLock) Release(ctx context.Context) error {
	m := l.manager
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.held[l.key]
	if !ok || e.token != l.token {
		return ErrLockNotOwned
	}
	delete(m.held, l.key)
	return nil
}

func (l *localLock) Extend(ctx context.Context, ttl time.Duration) error {
	m := l.manager
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.held[l.key]
	if !ok || e.token != l.token {
		return ErrLockNotOwned
	}
	e.expiresAt = m.now().Add(ttl)
	m.held[l.key] = e
	return nil
}

var (
	_ LockManagerInterface = (*LockManager)(nil)
	_ LockManagerInterface = (*LocalLockManager)(nil)
)
