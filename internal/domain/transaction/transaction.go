package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// ErrTxDone はコミットまたはロールバック済みのトランザクションを操作した場合のエラー
var ErrTxDone = errors.New("トランザクションは既に終了しています")

// UndoFunc は書き込み済みのステップを打ち消す補償処理
type UndoFunc func(ctx context.Context) error

// Tx は補償処理のスタックで表現する論理トランザクション
// ストアが複数レコードにまたがるアトミック性を持たないため、
// 各ステップの書き込みが成功した直後に補償処理を登録し、失敗時に逆順で実行する
type Tx interface {
	// OnRollback はステップの補償処理を登録する
	OnRollback(step string, undo UndoFunc)
	// Commit は補償処理を破棄して確定する
	Commit() error
	// Rollback は登録済みの補償処理を新しい順に実行する
	// 補償処理の失敗はまとめて返すが、途中で中断はしない
	Rollback(ctx context.Context) error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}

type compensation struct {
	step string
	undo UndoFunc
}

type compensatingTx struct {
	mu    sync.Mutex
	steps []compensation
	done  bool
}

// OnRollback implements Tx
func (t *compensatingTx) OnRollback(step string, undo UndoFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.steps = append(t.steps, compensation{step: step, undo: undo})
}

// Commit implements Tx
func (t *compensatingTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.steps = nil
	return nil
}

// Rollback implements Tx
func (t *compensatingTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTxDone
	}
	t.done = true
	steps := t.steps
	t.steps = nil
	t.mu.Unlock()

	var errs error
	for i := len(steps) - 1; i >= 0; i-- {
		c := steps[i]
		if err := c.undo(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("補償処理 %s に失敗しました: %w", c.step, err))
		}
	}
	return errs
}

// CompensatingManager は補償トランザクションを発行する Manager
type CompensatingManager struct{}

// NewManager は CompensatingManager を作成する
func NewManager() *CompensatingManager {
	return &CompensatingManager{}
}

// Begin implements Manager
func (m *CompensatingManager) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &compensatingTx{}, nil
}
