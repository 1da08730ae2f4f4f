package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
)

// SeatReconcilerService は残席数を予約から再計算するインターフェース
type SeatReconcilerService interface {
	ReconcileSeats(ctx context.Context, now time.Time) (int, error)
}

// SeatReconciler は cron 式に従って残席の再計算を実行する
type SeatReconciler struct {
	service SeatReconcilerService
	spec    string
	timeout time.Duration
	cron    *cron.Cron
	now     func() time.Time
}

// NewSeatReconciler は新しいワーカーを作成する
// 実行が重なった場合は後続をスキップする
func NewSeatReconciler(s SeatReconcilerService, spec string) *SeatReconciler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Get()))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &SeatReconciler{
		service: s,
		spec:    spec,
		timeout: 5 * time.Minute,
		cron:    c,
		now:     time.Now,
	}
}

// Start はジョブを登録してスケジューラを開始する
func (r *SeatReconciler) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.run); err != nil {
		return fmt.Errorf("残席再計算ジョブの登録に失敗: %w", err)
	}
	logger.Info("残席再計算ジョブを登録", zap.String("schedule", r.spec))
	r.cron.Start()
	return nil
}

// Stop はスケジューラを停止する。返り値の ctx は実行中のジョブ完了で Done になる
func (r *SeatReconciler) Stop() context.Context {
	return r.cron.Stop()
}

func (r *SeatReconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	corrected, err := r.service.ReconcileSeats(ctx, r.now())
	if err != nil {
		logger.Error("残席再計算に失敗", zap.Int("corrected", corrected), zap.Error(err))
		return
	}
	if corrected > 0 {
		logger.Warn("残席数のずれを修正", zap.Int("corrected", corrected))
	} else {
		logger.Debug("残席数のずれなし")
	}
}
