package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-class-reservation/internal/application"
	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
)

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id, userID string) (*reservation.Reservation, error)
	GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id, userID string) (*reservation.Reservation, error)
}

// ReservationAdminServiceInterface は管理者向けの予約操作
type ReservationAdminServiceInterface interface {
	UpdateReservationStatus(ctx context.Context, id, status string, adminID *string) (*reservation.Reservation, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// ScheduleServiceInterface は開催枠サービスのインターフェース
type ScheduleServiceInterface interface {
	CreateSchedule(ctx context.Context, input application.CreateScheduleInput) (*schedule.ClassSchedule, error)
	GetSchedule(ctx context.Context, id string) (*schedule.ClassSchedule, error)
	ListUpcoming(ctx context.Context, limit int) ([]*schedule.ClassSchedule, error)
	RemainingSeats(ctx context.Context, id string) (int, error)
}

// SessionServiceInterface はセッション残高サービスのインターフェース
type SessionServiceInterface interface {
	GetBalance(ctx context.Context, id, userID string) (*session.Balance, error)
	ListTransactions(ctx context.Context, balanceID, userID string, limit, offset int) ([]*session.Transaction, error)
	AdjustBalance(ctx context.Context, input application.AdjustBalanceInput) (*session.Balance, error)
}

// SeatReconcilerInterface は残席の再計算
type SeatReconcilerInterface interface {
	ReconcileSeats(ctx context.Context, now time.Time) (int, error)
}
