package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
	"github.com/sanosuguru/go-class-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
)

type SessionService struct {
	txManager   transaction.Manager
	balanceRepo session.Repository
	ledgerRepo  session.LedgerRepository
	now         func() time.Time
}

func NewSessionService(txm transaction.Manager, br session.Repository, lr session.LedgerRepository) *SessionService {
	return &SessionService{txManager: txm, balanceRepo: br, ledgerRepo: lr, now: time.Now}
}

// GetBalance は利用者自身の残高を取得する。他人の残高は存在しないものとして扱う
func (s *SessionService) GetBalance(ctx context.Context, id, userID string) (*session.Balance, error) {
	b, err := s.balanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, session.ErrBalanceNotFound
	}
	return b, nil
}

// ListTransactions は利用者自身の残高の台帳を取得する
func (s *SessionService) ListTransactions(ctx context.Context, balanceID, userID string, limit, offset int) ([]*session.Transaction, error) {
	if _, err := s.GetBalance(ctx, balanceID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledgerRepo.ListByBalance(ctx, balanceID, limit, offset)
}

type AdjustBalanceInput struct {
	BalanceID string
	Delta     int
	Reason    string
	AdminID   string
}

// AdjustBalance は管理者による残高の増減。台帳への記録に失敗した場合は残高を元に戻す
func (s *SessionService) AdjustBalance(ctx context.Context, input AdjustBalanceInput) (*session.Balance, error) {
	if input.Delta == 0 {
		return nil, session.ErrInvalidAmount
	}
	if input.Reason == "" {
		return nil, session.ErrReasonRequired
	}

	b, err := s.balanceRepo.GetByID(ctx, input.BalanceID)
	if err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.balanceRepo.Adjust(ctx, b.ID, input.Delta); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	tx.OnRollback("revert_adjustment", func(ctx context.Context) error {
		return s.balanceRepo.Adjust(ctx, b.ID, -input.Delta)
	})

	entry := session.NewTransaction(b, session.TypeAdminAdjustment, input.Delta, input.Reason, nil, s.now())
	if input.AdminID != "" {
		adminID := input.AdminID
		entry.CreatedBy = &adminID
	}
	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Error("残高調整の取り消しに失敗しました", zap.String("balance_id", b.ID), zap.Error(rbErr))
		}
		return nil, errors.Join(ErrStoreWriteFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logger.Info("セッション残高を調整しました",
		zap.String("balance_id", b.ID), zap.Int("delta", input.Delta), zap.String("admin_id", input.AdminID))
	return s.balanceRepo.GetByID(ctx, b.ID)
}
