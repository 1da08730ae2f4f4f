package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	redisinfra "github.com/sanosuguru/go-class-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
)

const (
	remainingSeatsCacheTTL = 30 * time.Second
	maxScheduleListLimit   = 100
)

type ScheduleService struct {
	scheduleRepo schedule.Repository
	cache        redisinfra.ScheduleCacheInterface
	now          func() time.Time
}

// NewScheduleService は ScheduleService を作成する。cache は nil でもよい
func NewScheduleService(sr schedule.Repository, cache redisinfra.ScheduleCacheInterface) *ScheduleService {
	return &ScheduleService{scheduleRepo: sr, cache: cache, now: time.Now}
}

type CreateScheduleInput struct {
	ClassID         string
	StartsAt        time.Time
	DurationMinutes int
	Capacity        int
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, input CreateScheduleInput) (*schedule.ClassSchedule, error) {
	sc := schedule.NewClassSchedule(input.ClassID, input.StartsAt, input.DurationMinutes, input.Capacity)
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if err := s.scheduleRepo.Create(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id string) (*schedule.ClassSchedule, error) {
	return s.scheduleRepo.GetByID(ctx, id)
}

func (s *ScheduleService) ListUpcoming(ctx context.Context, limit int) ([]*schedule.ClassSchedule, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxScheduleListLimit {
		limit = maxScheduleListLimit
	}
	return s.scheduleRepo.ListUpcoming(ctx, s.now(), limit)
}

// RemainingSeats は残席数をキャッシュ優先で取得する
func (s *ScheduleService) RemainingSeats(ctx context.Context, id string) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetRemainingSeats(ctx, id)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("schedule_id", id), zap.Int("remaining", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	sc, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetRemainingSeats(ctx, id, sc.RemainingSeats, remainingSeatsCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return sc.RemainingSeats, nil
}
