package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
)

// Decision は予約可否の判定結果
type Decision struct {
	Allowed  bool
	Code     string
	Reason   string
	Schedule *schedule.ClassSchedule
	// Balance は消費対象のセッション残高。存在しない場合は nil
	Balance *session.Balance
}

// AvailabilityOracle は予約可否を判定する
type AvailabilityOracle interface {
	Check(ctx context.Context, scheduleID string, partySize int, userID string, sessionsRequired int) (*Decision, error)
}

// ScheduleAvailability は開催枠と残高リポジトリから予約可否を判定する既定の実装
type ScheduleAvailability struct {
	scheduleRepo    schedule.Repository
	balanceRepo     session.Repository
	requireSessions bool
	now             func() time.Time
}

// AvailabilityOption は ScheduleAvailability の設定
type AvailabilityOption func(*ScheduleAvailability)

// WithSessionRequirement は消費可能な残高がない場合に拒否するかを設定する
// 既定では残高がなければセッションを消費せずに予約を通す
func WithSessionRequirement(required bool) AvailabilityOption {
	return func(a *ScheduleAvailability) {
		a.requireSessions = required
	}
}

// WithAvailabilityClock は判定に使う現在時刻を差し替える
func WithAvailabilityClock(now func() time.Time) AvailabilityOption {
	return func(a *ScheduleAvailability) {
		a.now = now
	}
}

func NewScheduleAvailability(sr schedule.Repository, br session.Repository, opts ...AvailabilityOption) *ScheduleAvailability {
	a := &ScheduleAvailability{scheduleRepo: sr, balanceRepo: br, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Check implements AvailabilityOracle
func (a *ScheduleAvailability) Check(ctx context.Context, scheduleID string, partySize int, userID string, sessionsRequired int) (*Decision, error) {
	sc, err := a.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			return &Decision{Code: ReasonScheduleNotFound, Reason: "クラスのスケジュールが見つかりません"}, nil
		}
		return nil, fmt.Errorf("スケジュール取得に失敗: %w", err)
	}

	now := a.now()
	switch {
	case sc.IsCancelled:
		return &Decision{Code: ReasonScheduleCancelled, Reason: "このクラスは休講です", Schedule: sc}, nil
	case !sc.IsBookable(now):
		return &Decision{Code: ReasonScheduleStarted, Reason: "このクラスは既に開始しています", Schedule: sc}, nil
	case !sc.HasSeats(partySize):
		return &Decision{
			Code:     ReasonInsufficientSeats,
			Reason:   fmt.Sprintf("残席が不足しています（残り%d席）", sc.RemainingSeats),
			Schedule: sc,
		}, nil
	}

	d := &Decision{Allowed: true, Schedule: sc}
	if sessionsRequired <= 0 {
		return d, nil
	}

	bal, err := a.balanceRepo.FindEligible(ctx, userID, sessionsRequired, now)
	switch {
	case err == nil:
		d.Balance = bal
	case errors.Is(err, session.ErrBalanceNotFound):
		if a.requireSessions {
			return &Decision{Code: ReasonInsufficientSessions, Reason: "利用可能なセッション残高がありません", Schedule: sc}, nil
		}
	default:
		return nil, fmt.Errorf("セッション残高取得に失敗: %w", err)
	}
	return d, nil
}
