package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
)

// BalanceRepository は session.Repository のメモリ実装
type BalanceRepository struct {
	store *Store
}

// Create は新しい残高を作成する
func (r *BalanceRepository) Create(ctx context.Context, b *session.Balance) error {
	if b.SessionCount < 0 {
		return session.ErrNegativeBalance
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	r.store.balances[b.ID] = copyBalance(b)
	return nil
}

// GetByID はIDから残高を取得する
func (r *BalanceRepository) GetByID(ctx context.Context, id string) (*session.Balance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[id]
	if !ok {
		return nil, session.ErrBalanceNotFound
	}
	return copyBalance(b), nil
}

// FindEligible は消費可能な残高のうち最も期限が近いものを返す
func (r *BalanceRepository) FindEligible(ctx context.Context, userID string, required int, now time.Time) (*session.Balance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var found *session.Balance
	for _, b := range r.store.balances {
		if b.UserID != userID || !b.IsUsableAt(now, required) {
			continue
		}
		if found == nil || b.ExpiresAt.Before(found.ExpiresAt) {
			found = b
		}
	}
	if found == nil {
		return nil, session.ErrBalanceNotFound
	}
	return copyBalance(found), nil
}

// Deduct は残高が n 以上ある場合のみ減らす
func (r *BalanceRepository) Deduct(ctx context.Context, id string, n int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[id]
	if !ok {
		return session.ErrBalanceNotFound
	}
	if b.SessionCount < n {
		return session.ErrInsufficientSessions
	}
	b.SessionCount -= n
	return nil
}

// Restore は残高を n 増やす
func (r *BalanceRepository) Restore(ctx context.Context, id string, n int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[id]
	if !ok {
		return session.ErrBalanceNotFound
	}
	b.SessionCount += n
	return nil
}

// Adjust は残高を delta だけ増減する
func (r *BalanceRepository) Adjust(ctx context.Context, id string, delta int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[id]
	if !ok {
		return session.ErrBalanceNotFound
	}
	if b.SessionCount+delta < 0 {
		return session.ErrNegativeBalance
	}
	b.SessionCount += delta
	return nil
}

// LedgerRepository は session.LedgerRepository のメモリ実装
type LedgerRepository struct {
	store *Store
}

// Append は台帳エントリを追記する
func (r *LedgerRepository) Append(ctx context.Context, tx *session.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	r.store.ledger = append(r.store.ledger, copyTransaction(tx))
	return nil
}

// ListByReservation は予約に紐づくエントリを追記順に取得する
func (r *LedgerRepository) ListByReservation(ctx context.Context, reservationID string) ([]*session.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	list := []*session.Transaction{}
	for _, tx := range r.store.ledger {
		if tx.ReservationID != nil && *tx.ReservationID == reservationID {
			list = append(list, copyTransaction(tx))
		}
	}
	return list, nil
}

// ListByBalance は残高に紐づくエントリを追記順に取得する
func (r *LedgerRepository) ListByBalance(ctx context.Context, balanceID string, limit, offset int) ([]*session.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	list := []*session.Transaction{}
	for _, tx := range r.store.ledger {
		if tx.BalanceID == balanceID {
			list = append(list, copyTransaction(tx))
		}
	}
	return page(list, limit, offset), nil
}
