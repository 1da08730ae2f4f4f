package schedule

import (
	"context"
	"time"
)

// Repository はスケジュールリポジトリのインターフェース
type Repository interface {
	// Create は新しい開催枠を作成する
	Create(ctx context.Context, schedule *ClassSchedule) error

	// GetByID はIDから開催枠を取得する
	GetByID(ctx context.Context, id string) (*ClassSchedule, error)

	// ListUpcoming は from 以降に開始するキャンセルされていない開催枠を取得する
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*ClassSchedule, error)

	// DecrementSeats は残席が n 以上ある場合のみ n 減らす（条件付き更新）
	// 残席不足の場合は ErrInsufficientSeats を返す
	DecrementSeats(ctx context.Context, id string, n int) error

	// RestoreSeats は残席を n 増やす。定員を超えない
	RestoreSeats(ctx context.Context, id string, n int) error

	// CompareAndSetSeats は残席が expected のままの場合のみ remaining に置き換える（整合性修復用）
	// 読み取り後に他の更新が入っていれば ErrSeatsChanged を返す
	CompareAndSetSeats(ctx context.Context, id string, expected, remaining int) error
}
