package application

import (
	"errors"

	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
)

// ErrorKind は予約処理の失敗分類
type ErrorKind string

const (
	// KindAvailabilityDenied は空きがない等の業務上想定された拒否
	KindAvailabilityDenied ErrorKind = "availability_denied"
	// KindInsufficientSessions はセッション残高の再確認で不足が判明した場合
	KindInsufficientSessions ErrorKind = "insufficient_sessions"
	// KindStoreWriteFailed はストア操作の失敗
	KindStoreWriteFailed ErrorKind = "store_write_failed"
	// KindNotFoundOrUnauthorized は対象が存在しないか呼び出し元の所有でない
	KindNotFoundOrUnauthorized ErrorKind = "not_found_or_unauthorized"
	// KindInvalidInput は入力値の不正
	KindInvalidInput ErrorKind = "invalid_input"
	// KindInvalidState は現在のステータスでは実行できない操作
	KindInvalidState ErrorKind = "invalid_state"
)

// errors.Is で分類を判定するための番兵エラー
var (
	ErrAvailabilityDenied     = errors.New("予約できません")
	ErrInsufficientSessions   = errors.New("セッション残高が不足しています")
	ErrStoreWriteFailed       = errors.New("データの保存に失敗しました")
	ErrNotFoundOrUnauthorized = errors.New("予約が見つからないか、操作する権限がありません")
	ErrInvalidInput           = errors.New("入力値が不正です")
	ErrInvalidState           = errors.New("現在の状態では操作できません")
)

var kindSentinels = map[ErrorKind]error{
	KindAvailabilityDenied:     ErrAvailabilityDenied,
	KindInsufficientSessions:   ErrInsufficientSessions,
	KindStoreWriteFailed:       ErrStoreWriteFailed,
	KindNotFoundOrUnauthorized: ErrNotFoundOrUnauthorized,
	KindInvalidInput:           ErrInvalidInput,
	KindInvalidState:           ErrInvalidState,
}

// 拒否理由コード
const (
	ReasonScheduleNotFound     = "schedule_not_found"
	ReasonScheduleCancelled    = "schedule_cancelled"
	ReasonScheduleStarted      = "schedule_started"
	ReasonInsufficientSeats    = "insufficient_seats"
	ReasonSeatsUnavailable     = "seats_unavailable"
	ReasonInsufficientSessions = "insufficient_sessions"
	ReasonScheduleBusy         = "schedule_busy"
)

// BookingError はサービス境界で返す失敗
// 失敗が返った後もストアの状態が完全に整合しているとは限らない
type BookingError struct {
	Kind     ErrorKind
	Message  string
	Reason   string
	Schedule *schedule.ClassSchedule
	Err      error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap は分類の番兵エラーと元のエラーの両方を返す
func (e *BookingError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// AsBookingError は err が BookingError であれば取り出す
func AsBookingError(err error) (*BookingError, bool) {
	var be *BookingError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func newDenied(reason, message string, snapshot *schedule.ClassSchedule) *BookingError {
	return &BookingError{Kind: KindAvailabilityDenied, Message: message, Reason: reason, Schedule: snapshot}
}

func newStoreFailed(message string, err error) *BookingError {
	return &BookingError{Kind: KindStoreWriteFailed, Message: message, Err: err}
}

func newInsufficientSessions(err error) *BookingError {
	return &BookingError{
		Kind:    KindInsufficientSessions,
		Message: "セッション残高が不足しています",
		Reason:  ReasonInsufficientSessions,
		Err:     err,
	}
}

func newNotFoundOrUnauthorized(err error) *BookingError {
	return &BookingError{Kind: KindNotFoundOrUnauthorized, Message: "予約が見つからないか、操作する権限がありません", Err: err}
}

func newInvalidInput(message string, err error) *BookingError {
	return &BookingError{Kind: KindInvalidInput, Message: message, Err: err}
}

func newInvalidState(message string, err error) *BookingError {
	return &BookingError{Kind: KindInvalidState, Message: message, Err: err}
}
