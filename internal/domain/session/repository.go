package session

import (
	"context"
	"time"
)

// Repository はセッション残高リポジトリのインターフェース
type Repository interface {
	// Create は新しい残高を作成する
	Create(ctx context.Context, balance *Balance) error

	// GetByID はIDから残高を取得する
	GetByID(ctx context.Context, id string) (*Balance, error)

	// FindEligible は now 時点で required 回分消費できる残高のうち最も期限が近いものを返す
	// 見つからない場合は ErrBalanceNotFound を返す
	FindEligible(ctx context.Context, userID string, required int, now time.Time) (*Balance, error)

	// Deduct は残高が n 以上ある場合のみ n 減らす（条件付き更新）
	// 残高不足の場合は ErrInsufficientSessions を返す
	Deduct(ctx context.Context, id string, n int) error

	// Restore は残高を n 増やす（アトミックな加算）
	Restore(ctx context.Context, id string, n int) error

	// Adjust は残高を delta だけ増減する。結果が負になる場合は ErrNegativeBalance を返す
	Adjust(ctx context.Context, id string, delta int) error
}

// LedgerRepository はセッション台帳リポジトリのインターフェース（追記専用）
type LedgerRepository interface {
	// Append は台帳エントリを追記する
	Append(ctx context.Context, tx *Transaction) error

	// ListByReservation は予約に紐づくエントリを作成順に取得する
	ListByReservation(ctx context.Context, reservationID string) ([]*Transaction, error)

	// ListByBalance は残高に紐づくエントリを作成順に取得する
	ListByBalance(ctx context.Context, balanceID string, limit, offset int) ([]*Transaction, error)
}
