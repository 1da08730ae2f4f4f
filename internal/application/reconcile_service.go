package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	redisinfra "github.com/sanosuguru/go-class-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/metrics"
)

// ReconcileService は予約の状態から残席数を再計算する
// 期限切れ処理の途中停止やステータスの直接変更で残席がずれた場合に整合させる
// 書き込みは読み取った残席数を条件にするため、集計中に入った予約の減算を上書きしない
type ReconcileService struct {
	scheduleRepo    schedule.Repository
	reservationRepo reservation.Repository
	invalidator     CacheInvalidator
	lockManager     redisinfra.LockManagerInterface
	metrics         *metrics.Metrics
	lockTTL         time.Duration
}

func NewReconcileService(sr schedule.Repository, rr reservation.Repository, inv CacheInvalidator, lm redisinfra.LockManagerInterface, m *metrics.Metrics) *ReconcileService {
	return &ReconcileService{
		scheduleRepo:    sr,
		reservationRepo: rr,
		invalidator:     inv,
		lockManager:     lm,
		metrics:         m,
		lockTTL:         defaultLockTTL,
	}
}

// ReconcileSeats は now 以降に開始する開催枠の残席を再計算し、修正した件数を返す
func (s *ReconcileService) ReconcileSeats(ctx context.Context, now time.Time) (int, error) {
	schedules, err := s.scheduleRepo.ListUpcoming(ctx, now, 0)
	if err != nil {
		return 0, fmt.Errorf("開催枠の取得に失敗: %w", err)
	}

	corrected := 0
	var errs error
	for _, sc := range schedules {
		changed, err := s.reconcileOne(ctx, sc.ID)
		switch {
		case errors.Is(err, redisinfra.ErrLockNotAcquired), errors.Is(err, schedule.ErrSeatsChanged):
			// 処理中の予約がある開催枠は次回に回す
			s.count("skipped")
		case err != nil:
			s.count("error")
			errs = multierr.Append(errs, fmt.Errorf("開催枠 %s: %w", sc.ID, err))
		case changed:
			corrected++
			s.count("corrected")
		default:
			s.count("unchanged")
		}
	}
	return corrected, errs
}

func (s *ReconcileService) reconcileOne(ctx context.Context, scheduleID string) (bool, error) {
	if s.lockManager != nil {
		lock, err := s.lockManager.AcquireLock(ctx, redisinfra.ScheduleLockKey(scheduleID), s.lockTTL)
		if err != nil {
			return false, err
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	sc, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		return false, err
	}
	occupied, err := s.reservationRepo.CountOccupiedSeats(ctx, scheduleID)
	if err != nil {
		return false, err
	}

	want := sc.ClampSeats(sc.Capacity - occupied)
	if want == sc.RemainingSeats {
		return false, nil
	}
	// 集計中に残席が動いていれば書き込まない
	if err := s.scheduleRepo.CompareAndSetSeats(ctx, scheduleID, sc.RemainingSeats, want); err != nil {
		if errors.Is(err, schedule.ErrSeatsChanged) {
			logger.Info("集計中に残席が変更されたため再計算を見送りました", zap.String("schedule_id", scheduleID))
		}
		return false, err
	}

	logger.Warn("残席数を修正しました",
		zap.String("schedule_id", scheduleID), zap.Int("before", sc.RemainingSeats), zap.Int("after", want))
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, scheduleID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.String("schedule_id", scheduleID), zap.Error(err))
		}
	}
	return true, nil
}

func (s *ReconcileService) count(result string) {
	if s.metrics != nil {
		s.metrics.SeatReconciliationsTotal.WithLabelValues(result).Inc()
	}
}
