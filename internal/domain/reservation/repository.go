package reservation

import (
	"context"
	"time"
)

// Repository は予約リポジトリのインターフェース
// 複数レコードにまたがるトランザクションは提供しない
type Repository interface {
	// Create は新しい予約を作成し、採番したIDを設定する
	Create(ctx context.Context, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByIDForUser は所有者を条件に含めて予約を取得する
	// 存在しない場合も他人の予約の場合も ErrReservationNotFound を返す
	GetByIDForUser(ctx context.Context, id, userID string) (*Reservation, error)

	// GetByUserID はユーザーIDから予約一覧を取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Reservation, error)

	// LinkSession は予約に消費したセッション残高IDを紐付ける
	LinkSession(ctx context.Context, id, sessionID string, at time.Time) error

	// UpdateStatus はステータスを無条件に上書きする（管理者操作）
	UpdateStatus(ctx context.Context, id string, status Status, updatedBy *string, at time.Time) error

	// TransitionStatus は現在のステータスが from のいずれかの場合のみ to へ更新する
	// 条件に一致しない場合は ErrStatusConflict を返す
	TransitionStatus(ctx context.Context, id string, from []Status, to Status, updatedBy *string, at time.Time) error

	// GetExpiredPending は now 時点で期限切れの保留中予約を取得する
	GetExpiredPending(ctx context.Context, now time.Time) ([]*Reservation, error)

	// ExpirePending は指定IDのうち保留中のものだけを expired に更新し、更新したIDを返す
	ExpirePending(ctx context.Context, ids []string, at time.Time) ([]string, error)

	// Delete は予約を物理削除する（補償処理専用）
	Delete(ctx context.Context, id string) error

	// CountOccupiedSeats はスケジュールで座席を占有している受講人数の合計を返す
	CountOccupiedSeats(ctx context.Context, scheduleID string) (int, error)
}
