// Package memory はプロセス内で完結するレコードストア
// 開発用バックエンドとテスト用のステートフルなダブルとして使う
package memory

import (
	"sync"

	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
)

// Store はコレクションごとのリポジトリをまとめたもの
// 各コレクションは単一レコード単位でのみアトミック
type Store struct {
	mu           sync.Mutex
	reservations map[string]*reservation.Reservation
	schedules    map[string]*schedule.ClassSchedule
	balances     map[string]*session.Balance
	ledger       []*session.Transaction
}

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{
		reservations: make(map[string]*reservation.Reservation),
		schedules:    make(map[string]*schedule.ClassSchedule),
		balances:     make(map[string]*session.Balance),
	}
}

// Reservations は予約リポジトリを返す
func (s *Store) Reservations() *ReservationRepository {
	return &ReservationRepository{store: s}
}

// Schedules はスケジュールリポジトリを返す
func (s *Store) Schedules() *ScheduleRepository {
	return &ScheduleRepository{store: s}
}

// Balances はセッション残高リポジトリを返す
func (s *Store) Balances() *BalanceRepository {
	return &BalanceRepository{store: s}
}

// Ledger はセッション台帳リポジトリを返す
func (s *Store) Ledger() *LedgerRepository {
	return &LedgerRepository{store: s}
}

func copyReservation(r *reservation.Reservation) *reservation.Reservation {
	c := *r
	return &c
}

func copySchedule(sc *schedule.ClassSchedule) *schedule.ClassSchedule {
	c := *sc
	return &c
}

func copyBalance(b *session.Balance) *session.Balance {
	c := *b
	return &c
}

func copyTransaction(tx *session.Transaction) *session.Transaction {
	c := *tx
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
