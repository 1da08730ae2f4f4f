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
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
	"github.com/sanosuguru/go-class-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-class-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/metrics"
)

// 補償処理のステップ名
const (
	stepDeleteReservation = "delete_reservation"
	stepRestoreSessions   = "restore_sessions"
	stepLedgerRollback    = "append_deduction_rollback"
)

const (
	defaultLockTTL        = 10 * time.Second
	defaultLockRetries    = 3
	defaultLockRetryDelay = 100 * time.Millisecond
)

type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	scheduleRepo    schedule.Repository
	balanceRepo     session.Repository
	ledgerRepo      session.LedgerRepository
	oracle          AvailabilityOracle
	invalidator     CacheInvalidator
	lockManager     redisinfra.LockManagerInterface
	metrics         *metrics.Metrics
	now             func() time.Time
	pendingTTL      time.Duration
	lockTTL         time.Duration
	lockRetries     int
	lockRetryDelay  time.Duration
}

// ServiceOption は ReservationService の設定
type ServiceOption func(*ReservationService)

// WithLockManager は開催枠単位の分散ロックを有効にする
func WithLockManager(lm redisinfra.LockManagerInterface) ServiceOption {
	return func(s *ReservationService) {
		s.lockManager = lm
	}
}

// WithLockRetry はロック取得のTTLとリトライを設定する
func WithLockRetry(ttl time.Duration, retries int, delay time.Duration) ServiceOption {
	return func(s *ReservationService) {
		s.lockTTL = ttl
		s.lockRetries = retries
		s.lockRetryDelay = delay
	}
}

// WithInvalidator は残席変更の通知先を設定する
func WithInvalidator(inv CacheInvalidator) ServiceOption {
	return func(s *ReservationService) {
		s.invalidator = inv
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *ReservationService) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *ReservationService) {
		s.now = now
	}
}

// WithPendingTTL は保留中予約の有効期限を設定する
func WithPendingTTL(ttl time.Duration) ServiceOption {
	return func(s *ReservationService) {
		s.pendingTTL = ttl
	}
}

func NewReservationService(
	txm transaction.Manager,
	rr reservation.Repository,
	sr schedule.Repository,
	br session.Repository,
	lr session.LedgerRepository,
	oracle AvailabilityOracle,
	opts ...ServiceOption,
) *ReservationService {
	s := &ReservationService{
		txManager:       txm,
		reservationRepo: rr,
		scheduleRepo:    sr,
		balanceRepo:     br,
		ledgerRepo:      lr,
		oracle:          oracle,
		now:             time.Now,
		pendingTTL:      reservation.DefaultPendingTTL,
		lockTTL:         defaultLockTTL,
		lockRetries:     defaultLockRetries,
		lockRetryDelay:  defaultLockRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateReservationInput struct {
	UserID        string
	ScheduleID    string
	StudentCount  int
	TotalPrice    int
	PaymentMethod string
	Notes         *string
	// SessionsRequired は消費するセッション数。nil の場合は 1
	SessionsRequired *int
}

func (in CreateReservationInput) sessionsRequired() (int, error) {
	if in.SessionsRequired == nil {
		return 1, nil
	}
	if *in.SessionsRequired < 0 {
		return 0, errors.New("消費セッション数は0以上である必要があります")
	}
	return *in.SessionsRequired, nil
}

// CreateReservation はクラス予約を作成する
// 各ステップの書き込み成功後に補償処理を積み、後続の失敗時は逆順に打ち消してからエラーを返す
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (*reservation.Reservation, error) {
	required, err := input.sessionsRequired()
	if err != nil {
		return nil, s.bookingFailed(newInvalidInput("入力値が不正です", err))
	}
	res := reservation.NewReservation(input.UserID, input.ScheduleID, input.StudentCount, input.TotalPrice,
		input.PaymentMethod, input.Notes, s.now(), s.pendingTTL)
	if err := res.Validate(); err != nil {
		return nil, s.bookingFailed(newInvalidInput("入力値が不正です", err))
	}

	release, err := s.lockSchedule(ctx, input.ScheduleID)
	if err != nil {
		return nil, s.bookingFailed(err)
	}
	defer release()

	// 1. 予約可否の判定
	decision, err := s.oracle.Check(ctx, input.ScheduleID, input.StudentCount, input.UserID, required)
	if err != nil {
		return nil, s.bookingFailed(newStoreFailed("空き状況の確認に失敗しました", err))
	}
	if !decision.Allowed {
		return nil, s.bookingFailed(newDenied(decision.Code, decision.Reason, decision.Schedule))
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, s.bookingFailed(newStoreFailed("トランザクション開始に失敗しました", err))
	}

	// 2. 予約レコードの作成
	if err := s.reservationRepo.Create(ctx, res); err != nil {
		return nil, s.abort(ctx, tx, res, newStoreFailed("予約の作成に失敗しました", err))
	}
	log := logger.With(zap.String("reservation_id", res.ID), zap.String("schedule_id", res.ScheduleID))
	tx.OnRollback(stepDeleteReservation, s.compensation(log, stepDeleteReservation, func(ctx context.Context) error {
		return s.reservationRepo.Delete(ctx, res.ID)
	}))

	rollbackType := session.TypeDeductionRollback
	if bal := decision.Balance; bal != nil && required > 0 {
		// 3. 残高の再確認
		current, err := s.balanceRepo.GetByID(ctx, bal.ID)
		if err != nil {
			return nil, s.abort(ctx, tx, res, newStoreFailed("セッション残高の取得に失敗しました", err))
		}
		if current.SessionCount < required {
			return nil, s.abort(ctx, tx, res, newInsufficientSessions(session.ErrInsufficientSessions))
		}

		// 4. 残高の減算
		if err := s.balanceRepo.Deduct(ctx, current.ID, required); err != nil {
			if errors.Is(err, session.ErrInsufficientSessions) {
				return nil, s.abort(ctx, tx, res, newInsufficientSessions(err))
			}
			return nil, s.abort(ctx, tx, res, newStoreFailed("セッション残高の更新に失敗しました", err))
		}
		tx.OnRollback(stepRestoreSessions, s.compensation(log, stepRestoreSessions, func(ctx context.Context) error {
			return s.balanceRepo.Restore(ctx, current.ID, required)
		}))

		// 5. 台帳への記録
		entry := session.NewTransaction(current, session.TypeDeduction, -required, "クラス予約によるセッション消費", &res.ID, s.now())
		if err := s.ledgerRepo.Append(ctx, entry); err != nil {
			return nil, s.abort(ctx, tx, res, newStoreFailed("セッション台帳の記録に失敗しました", err))
		}
		tx.OnRollback(stepLedgerRollback, s.compensation(log, stepLedgerRollback, func(ctx context.Context) error {
			rollback := session.NewTransaction(current, rollbackType, required, "予約失敗によるセッション返却", &res.ID, s.now())
			return s.ledgerRepo.Append(ctx, rollback)
		}))

		// 6. 予約と残高の紐付け
		// 失敗しても補償しない。予約と消費は残るため呼び出し側は不整合を前提にする
		if err := s.reservationRepo.LinkSession(ctx, res.ID, current.ID, s.now()); err != nil {
			if commitErr := tx.Commit(); commitErr != nil {
				log.Warn("補償処理の破棄に失敗しました", zap.Error(commitErr))
			}
			log.Error("セッションの紐付けに失敗しました。予約とセッション消費は残ったままです",
				zap.String("balance_id", current.ID), zap.Error(err))
			return nil, s.bookingFailed(newStoreFailed("予約とセッションの紐付けに失敗しました", err))
		}
		sessionID := current.ID
		res.SessionID = &sessionID
	}

	// 7. 残席の減算（条件付き更新）
	if err := s.scheduleRepo.DecrementSeats(ctx, res.ScheduleID, res.StudentCount); err != nil {
		rollbackType = session.TypeDeductionRollbackSeatsFail
		if errors.Is(err, schedule.ErrInsufficientSeats) {
			snapshot, getErr := s.scheduleRepo.GetByID(ctx, res.ScheduleID)
			if getErr != nil {
				snapshot = decision.Schedule
			}
			denied := newDenied(ReasonSeatsUnavailable, "他の予約により残席がなくなりました", snapshot)
			denied.Err = err
			return nil, s.abort(ctx, tx, res, denied)
		}
		return nil, s.abort(ctx, tx, res, newStoreFailed("残席の更新に失敗しました", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, s.bookingFailed(newStoreFailed("コミットに失敗しました", err))
	}

	// 8. 残席変更の通知
	s.invalidate(ctx, res.ScheduleID)
	s.countBooking("success")
	log.Info("予約を作成しました", zap.String("status", string(res.Status)), zap.Int("student_count", res.StudentCount))

	// 9. 確定したレコードを返す
	final, err := s.reservationRepo.GetByID(ctx, res.ID)
	if err != nil {
		log.Warn("作成した予約の再取得に失敗しました", zap.Error(err))
		return res, nil
	}
	return final, nil
}

// compensation は補償処理の結果をログとメトリクスに残すようにラップする
func (s *ReservationService) compensation(log *zap.Logger, step string, undo transaction.UndoFunc) transaction.UndoFunc {
	return func(ctx context.Context) error {
		err := undo(ctx)
		result := "success"
		if err != nil {
			result = "failed"
			log.Error("補償処理に失敗しました", zap.String("step", step), zap.Error(err))
		} else {
			log.Info("補償処理を実行しました", zap.String("step", step))
		}
		if s.metrics != nil {
			s.metrics.CompensationsTotal.WithLabelValues(step, result).Inc()
		}
		return err
	}
}

// abort は積まれた補償処理を実行して元のエラーを返す
// 補償処理の失敗はログに残すだけで、返すエラーは変えない
func (s *ReservationService) abort(ctx context.Context, tx transaction.Tx, res *reservation.Reservation, bErr *BookingError) error {
	fields := []zap.Field{zap.String("schedule_id", res.ScheduleID), zap.String("kind", string(bErr.Kind)), zap.Error(bErr)}
	if res.ID != "" {
		fields = append(fields, zap.String("reservation_id", res.ID))
	}
	logger.Warn("予約処理が失敗したため補償処理を実行します", fields...)

	// 呼び出し元のキャンセルで補償処理まで中断しないようにする
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Error("補償処理の一部が失敗しました", append(fields, zap.NamedError("rollback_error", err))...)
	}
	return s.bookingFailed(bErr)
}

func (s *ReservationService) bookingFailed(err error) error {
	be, ok := AsBookingError(err)
	switch {
	case !ok:
	case be.Reason == ReasonScheduleBusy:
		s.countBooking("lock_failed")
	default:
		s.countBooking(string(be.Kind))
	}
	return err
}

func (s *ReservationService) countBooking(result string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(result).Inc()
	}
}

// lockSchedule は開催枠のロックを取得し、解放関数を返す
// ロック基盤の障害時はロックなしで続行する。残席の整合性は条件付き更新で担保される
func (s *ReservationService) lockSchedule(ctx context.Context, scheduleID string) (func(), error) {
	noop := func() {}
	if s.lockManager == nil {
		return noop, nil
	}

	start := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, redisinfra.ScheduleLockKey(scheduleID), s.lockTTL, s.lockRetries, s.lockRetryDelay)
	if err != nil {
		s.observeLock("acquire", "failed", start)
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			be := newDenied(ReasonScheduleBusy, "このクラスは他の予約を処理中です。しばらくしてから再度お試しください", nil)
			be.Err = err
			return noop, be
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return noop, newStoreFailed("ロック取得が中断されました", ctxErr)
		}
		logger.Warn("ロック取得に失敗したためロックなしで続行します", zap.String("schedule_id", scheduleID), zap.Error(err))
		return noop, nil
	}
	s.observeLock("acquire", "success", start)

	return func() {
		start := time.Now()
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.observeLock("release", "failed", start)
			logger.Warn("ロック解放に失敗しました", zap.String("schedule_id", scheduleID), zap.Error(err))
			return
		}
		s.observeLock("release", "success", start)
	}, nil
}

func (s *ReservationService) observeLock(operation, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	}
}

// invalidate は残席変更を通知する。失敗はログに残すのみ
func (s *ReservationService) invalidate(ctx context.Context, scheduleID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, scheduleID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
}

// CancelReservation は利用者自身の予約をキャンセルし、残席を戻す
// セッション残高は返却しない
func (s *ReservationService) CancelReservation(ctx context.Context, id, userID string) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, s.cancelFailed("not_found", newNotFoundOrUnauthorized(err))
		}
		return nil, s.cancelFailed("error", newStoreFailed("予約の取得に失敗しました", err))
	}

	release, err := s.lockSchedule(ctx, res.ScheduleID)
	if err != nil {
		return nil, s.cancelFailed("error", err)
	}
	defer release()

	now := s.now()
	from := []reservation.Status{reservation.StatusPending, reservation.StatusConfirmed}
	if err := s.reservationRepo.TransitionStatus(ctx, res.ID, from, reservation.StatusCancelled, nil, now); err != nil {
		switch {
		case errors.Is(err, reservation.ErrStatusConflict):
			return nil, s.cancelFailed("invalid_state", newInvalidState("この予約はキャンセルできません", err))
		case errors.Is(err, reservation.ErrReservationNotFound):
			return nil, s.cancelFailed("not_found", newNotFoundOrUnauthorized(err))
		}
		return nil, s.cancelFailed("error", newStoreFailed("予約のキャンセルに失敗しました", err))
	}

	if err := s.scheduleRepo.RestoreSeats(ctx, res.ScheduleID, res.StudentCount); err != nil {
		logger.Error("キャンセル後の残席復元に失敗しました",
			zap.String("reservation_id", res.ID), zap.String("schedule_id", res.ScheduleID), zap.Error(err))
		return nil, s.cancelFailed("error", newStoreFailed("残席の復元に失敗しました", err))
	}
	s.invalidate(ctx, res.ScheduleID)

	res.Status = reservation.StatusCancelled
	res.UpdatedAt = now
	s.countCancellation("success")
	logger.Info("予約をキャンセルしました", zap.String("reservation_id", res.ID), zap.String("schedule_id", res.ScheduleID))
	return res, nil
}

func (s *ReservationService) cancelFailed(result string, err error) error {
	s.countCancellation(result)
	return err
}

func (s *ReservationService) countCancellation(result string) {
	if s.metrics != nil {
		s.metrics.CancellationsTotal.WithLabelValues(result).Inc()
	}
}

// SweepExpired は now 時点で期限切れの保留中予約を expired にし、残席を戻す
// 期限切れにした件数を返す。個別の残席復元に失敗しても件数は返す
// 開催枠ごとにロックを取り、失効と残席復元の間に残席の再計算が入らないようにする
func (s *ReservationService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.reservationRepo.GetExpiredPending(ctx, now)
	if err != nil {
		return 0, newStoreFailed("期限切れ予約の取得に失敗しました", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	var order []string
	bySchedule := make(map[string][]*reservation.Reservation)
	for _, res := range candidates {
		if _, ok := bySchedule[res.ScheduleID]; !ok {
			order = append(order, res.ScheduleID)
		}
		bySchedule[res.ScheduleID] = append(bySchedule[res.ScheduleID], res)
	}

	total := 0
	var errs error
	for _, scheduleID := range order {
		n, err := s.expireSchedule(ctx, scheduleID, bySchedule[scheduleID], now)
		total += n
		errs = multierr.Append(errs, err)
	}

	if s.metrics != nil {
		s.metrics.ExpiredReservationsTotal.Add(float64(total))
	}
	if errs != nil {
		return total, newStoreFailed("一部の期限切れ処理に失敗しました", errs)
	}
	return total, nil
}

// expireSchedule は1つの開催枠の期限切れ予約を失効させて残席を戻す
// ロックが取れない開催枠は何も変更せず次回に回す
func (s *ReservationService) expireSchedule(ctx context.Context, scheduleID string, candidates []*reservation.Reservation, now time.Time) (int, error) {
	release, err := s.lockSchedule(ctx, scheduleID)
	if err != nil {
		if be, ok := AsBookingError(err); ok && be.Reason == ReasonScheduleBusy {
			logger.Info("開催枠が処理中のため期限切れ処理を次回に回します",
				zap.String("schedule_id", scheduleID), zap.Int("candidates", len(candidates)))
			return 0, nil
		}
		return 0, fmt.Errorf("開催枠 %s: %w", scheduleID, err)
	}
	defer release()

	ids := make([]string, 0, len(candidates))
	for _, res := range candidates {
		ids = append(ids, res.ID)
	}
	expiredIDs, err := s.reservationRepo.ExpirePending(ctx, ids, now)
	if err != nil {
		return 0, fmt.Errorf("開催枠 %s の期限切れ更新に失敗: %w", scheduleID, err)
	}
	expired := make(map[string]struct{}, len(expiredIDs))
	for _, id := range expiredIDs {
		expired[id] = struct{}{}
	}

	var errs error
	restored := false
	for _, res := range candidates {
		if _, ok := expired[res.ID]; !ok {
			continue
		}
		if err := s.scheduleRepo.RestoreSeats(ctx, scheduleID, res.StudentCount); err != nil {
			logger.Error("期限切れ予約の残席復元に失敗しました",
				zap.String("reservation_id", res.ID), zap.String("schedule_id", scheduleID), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("予約 %s: %w", res.ID, err))
			continue
		}
		restored = true
	}
	if restored {
		s.invalidate(ctx, scheduleID)
	}
	return len(expiredIDs), errs
}

// UpdateReservationStatus は管理者によるステータスの上書き
// 遷移の妥当性は検証しない
func (s *ReservationService) UpdateReservationStatus(ctx context.Context, id, status string, adminID *string) (*reservation.Reservation, error) {
	st, err := reservation.ParseStatus(status)
	if err != nil {
		return nil, newInvalidInput("不明なステータスです", err)
	}
	if err := s.reservationRepo.UpdateStatus(ctx, id, st, adminID, s.now()); err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, newNotFoundOrUnauthorized(err)
		}
		return nil, newStoreFailed("ステータスの更新に失敗しました", err)
	}

	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, newNotFoundOrUnauthorized(err)
		}
		return nil, newStoreFailed("予約の取得に失敗しました", err)
	}
	fields := []zap.Field{zap.String("reservation_id", id), zap.String("status", string(st))}
	if adminID != nil {
		fields = append(fields, zap.String("admin_id", *adminID))
	}
	logger.Info("予約ステータスを更新しました", fields...)
	return res, nil
}

// GetReservation は利用者自身の予約を取得する
func (s *ReservationService) GetReservation(ctx context.Context, id, userID string) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, newNotFoundOrUnauthorized(err)
		}
		return nil, newStoreFailed("予約の取得に失敗しました", err)
	}
	return res, nil
}

func (s *ReservationService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	if limit <= 0 {
		limit = 20
	}
	list, err := s.reservationRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, newStoreFailed("予約一覧の取得に失敗しました", err)
	}
	return list, nil
}
