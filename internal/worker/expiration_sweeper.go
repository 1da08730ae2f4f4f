package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
)

// ExpiredSweeper は期限切れの保留中予約を失効させるインターフェース
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// ExpirationSweeper は一定間隔で期限切れ予約を失効させるワーカー
type ExpirationSweeper struct {
	service  ExpiredSweeper
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewExpirationSweeper は新しいワーカーを作成
func NewExpirationSweeper(s ExpiredSweeper, interval time.Duration) *ExpirationSweeper {
	return &ExpirationSweeper{
		service:  s,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はワーカーを開始する。ctx のキャンセルか Stop で戻る
func (w *ExpirationSweeper) Start(ctx context.Context) {
	logger.Info("期限切れ予約の失効処理を開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約の失効処理を停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れ予約の失効処理を停止（シグナル受信）")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop はワーカーを停止し、実行中の処理の完了を待つ
func (w *ExpirationSweeper) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *ExpirationSweeper) sweep(ctx context.Context) {
	log := logger.Get()

	count, err := w.service.SweepExpired(ctx, w.now())
	if err != nil {
		// 次回の実行で再試行される
		log.Error("期限切れ予約の失効処理に失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ予約を失効", zap.Int("count", count))
	} else {
		log.Debug("期限切れ予約なし")
	}
}
