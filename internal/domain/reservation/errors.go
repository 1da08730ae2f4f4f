package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound   = errors.New("予約が見つかりません")
	ErrStatusConflict        = errors.New("予約のステータスが想定と異なります")
	ErrUnknownStatus         = errors.New("不明な予約ステータスです")
	ErrUserIDRequired        = errors.New("ユーザーIDは必須です")
	ErrScheduleIDRequired    = errors.New("スケジュールIDは必須です")
	ErrInvalidStudentCount   = errors.New("受講人数は1以上である必要があります")
	ErrInvalidTotalPrice     = errors.New("合計金額は0以上である必要があります")
	ErrPaymentMethodRequired = errors.New("支払い方法は必須です")
)
