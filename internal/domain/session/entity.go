package session

import "time"

// Balance はユーザーが保有する前払いセッション残高を表す
type Balance struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	SessionCount int       `json:"session_count"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsUsableAt は now 時点で n 回分消費できるかを返す
func (b *Balance) IsUsableAt(now time.Time, n int) bool {
	return b.SessionCount >= n && now.Before(b.ExpiresAt)
}

// TransactionType はセッション台帳エントリの種別
type TransactionType string

const (
	TypeDeduction                  TransactionType = "deduction"
	TypeAddition                   TransactionType = "addition"
	TypeInitialGrant               TransactionType = "initial_grant"
	TypeRefund                     TransactionType = "refund"
	TypeAdminAdjustment            TransactionType = "admin_adjustment"
	TypeDeductionRollback          TransactionType = "deduction_rollback"
	TypeDeductionRollbackSeatsFail TransactionType = "deduction_rollback_seats_update_failed"
)

// Transaction はセッション残高の増減を記録する追記専用の台帳エントリ
type Transaction struct {
	ID            string          `json:"id"`
	BalanceID     string          `json:"balance_id"`
	UserID        string          `json:"user_id"`
	Type          TransactionType `json:"type"`
	AmountChanged int             `json:"amount_changed"`
	Reason        string          `json:"reason"`
	ReservationID *string         `json:"reservation_id,omitempty"`
	// CreatedBy は管理者による調整のときのみ設定される
	CreatedBy     *string         `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewTransaction は台帳エントリを作成する
func NewTransaction(balance *Balance, typ TransactionType, amount int, reason string, reservationID *string, now time.Time) *Transaction {
	return &Transaction{
		BalanceID:     balance.ID,
		UserID:        balance.UserID,
		Type:          typ,
		AmountChanged: amount,
		Reason:        reason,
		ReservationID: reservationID,
		CreatedAt:     now,
	}
}

// SumAmount はエントリの増減量の合計を返す
func SumAmount(txs []*Transaction) int {
	sum := 0
	for _, tx := range txs {
		sum += tx.AmountChanged
	}
	return sum
}
