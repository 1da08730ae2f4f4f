package schedule

import "errors"

// Schedule ドメインのエラー定義
var (
	ErrScheduleNotFound      = errors.New("スケジュールが見つかりません")
	ErrInsufficientSeats     = errors.New("残席が不足しています")
	ErrClassIDRequired       = errors.New("クラスIDは必須です")
	ErrStartsAtRequired      = errors.New("開始日時は必須です")
	ErrInvalidDuration       = errors.New("所要時間は1分以上である必要があります")
	ErrInvalidCapacity       = errors.New("定員は1以上である必要があります")
	ErrInvalidRemainingSeats = errors.New("残席数は0以上定員以下である必要があります")
	ErrSeatsChanged          = errors.New("残席数が読み取り後に変更されました")
)
