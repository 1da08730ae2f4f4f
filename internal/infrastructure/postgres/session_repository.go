package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
)

type balanceRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	SessionCount int       `db:"session_count"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *balanceRow) toEntity() *session.Balance {
	return &session.Balance{
		ID: r.ID, UserID: r.UserID, SessionCount: r.SessionCount,
		ExpiresAt: r.ExpiresAt, CreatedAt: r.CreatedAt,
	}
}

const balanceColumns = `id, user_id, session_count, expires_at, created_at`

type BalanceRepository struct{ db *sqlx.DB }

func NewBalanceRepository(db *sqlx.DB) *BalanceRepository { return &BalanceRepository{db: db} }

func (r *BalanceRepository) Create(ctx context.Context, b *session.Balance) error {
	if b.SessionCount < 0 {
		return session.ErrNegativeBalance
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	query := `INSERT INTO session_balances (user_id, session_count, expires_at, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, b.UserID, b.SessionCount, b.ExpiresAt, b.CreatedAt).Scan(&b.ID); err != nil {
		return fmt.Errorf("残高作成に失敗: %w", err)
	}
	return nil
}

func (r *BalanceRepository) GetByID(ctx context.Context, id string) (*session.Balance, error) {
	var row balanceRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+balanceColumns+` FROM session_balances WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, session.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("残高取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// FindEligible は有効期限が最も近い利用可能な残高を返す
func (r *BalanceRepository) FindEligible(ctx context.Context, userID string, required int, now time.Time) (*session.Balance, error) {
	var row balanceRow
	query := `SELECT ` + balanceColumns + ` FROM session_balances WHERE user_id = $1 AND session_count >= $2 AND expires_at > $3 ORDER BY expires_at ASC LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, userID, required, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("残高検索に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// Deduct は残高が n 以上ある行だけを更新する
func (r *BalanceRepository) Deduct(ctx context.Context, id string, n int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE session_balances SET session_count = session_count - $1 WHERE id = $2 AND session_count >= $1`, n, id)
	if err != nil {
		return fmt.Errorf("残高更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return session.ErrInsufficientSessions
	}
	return nil
}

func (r *BalanceRepository) Restore(ctx context.Context, id string, n int) error {
	return r.execOne(ctx, `UPDATE session_balances SET session_count = session_count + $1 WHERE id = $2`, n, id)
}

func (r *BalanceRepository) Adjust(ctx context.Context, id string, delta int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE session_balances SET session_count = session_count + $1 WHERE id = $2 AND session_count + $1 >= 0`, delta, id)
	if err != nil {
		return fmt.Errorf("残高更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return session.ErrNegativeBalance
	}
	return nil
}

func (r *BalanceRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return session.ErrBalanceNotFound
		}
		return fmt.Errorf("残高更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return session.ErrBalanceNotFound
	}
	return nil
}

type transactionRow struct {
	ID            string    `db:"id"`
	BalanceID     string    `db:"balance_id"`
	UserID        string    `db:"user_id"`
	Type          string    `db:"type"`
	AmountChanged int       `db:"amount_changed"`
	Reason        string    `db:"reason"`
	ReservationID *string   `db:"reservation_id"`
	CreatedBy     *string   `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *transactionRow) toEntity() *session.Transaction {
	return &session.Transaction{
		ID: r.ID, BalanceID: r.BalanceID, UserID: r.UserID,
		Type: session.TransactionType(r.Type), AmountChanged: r.AmountChanged,
		Reason: r.Reason, ReservationID: r.ReservationID, CreatedBy: r.CreatedBy, CreatedAt: r.CreatedAt,
	}
}

const transactionColumns = `id, balance_id, user_id, type, amount_changed, reason, reservation_id, created_by, created_at`

// LedgerRepository はセッション台帳。追記と参照のみ
type LedgerRepository struct{ db *sqlx.DB }

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository { return &LedgerRepository{db: db} }

func (r *LedgerRepository) Append(ctx context.Context, tx *session.Transaction) error {
	query := `INSERT INTO session_transactions (balance_id, user_id, type, amount_changed, reason, reservation_id, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, tx.BalanceID, tx.UserID, string(tx.Type), tx.AmountChanged, tx.Reason, tx.ReservationID, tx.CreatedBy, tx.CreatedAt).Scan(&tx.ID); err != nil {
		return fmt.Errorf("台帳記録に失敗: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListByReservation(ctx context.Context, reservationID string) ([]*session.Transaction, error) {
	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+transactionColumns+` FROM session_transactions WHERE reservation_id = $1 ORDER BY created_at ASC`, reservationID); err != nil {
		if isInvalidID(err) {
			return []*session.Transaction{}, nil
		}
		return nil, fmt.Errorf("台帳取得に失敗: %w", err)
	}
	return toTransactions(rows), nil
}

func (r *LedgerRepository) ListByBalance(ctx context.Context, balanceID string, limit, offset int) ([]*session.Transaction, error) {
	var rows []transactionRow
	query := `SELECT ` + transactionColumns + ` FROM session_transactions WHERE balance_id = $1 ORDER BY created_at ASC OFFSET $2`
	args := []interface{}{balanceID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isInvalidID(err) {
			return []*session.Transaction{}, nil
		}
		return nil, fmt.Errorf("台帳取得に失敗: %w", err)
	}
	return toTransactions(rows), nil
}

func toTransactions(rows []transactionRow) []*session.Transaction {
	result := make([]*session.Transaction, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result
}

var (
	_ session.Repository       = (*BalanceRepository)(nil)
	_ session.LedgerRepository = (*LedgerRepository)(nil)
)
