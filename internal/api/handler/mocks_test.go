package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-class-reservation/internal/application"
	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
)

// MockReservationService はReservationServiceInterfaceとReservationAdminServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) GetReservation(ctx context.Context, id, userID string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) CancelReservation(ctx context.Context, id, userID string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) UpdateReservationStatus(ctx context.Context, id, status string, adminID *string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, status, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) CreateSchedule(ctx context.Context, input application.CreateScheduleInput) (*schedule.ClassSchedule, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedule.ClassSchedule), args.Error(1)
}

func (m *MockScheduleService) GetSchedule(ctx context.Context, id string) (*schedule.ClassSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedule.ClassSchedule), args.Error(1)
}

func (m *MockScheduleService) ListUpcoming(ctx context.Context, limit int) ([]*schedule.ClassSchedule, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*schedule.ClassSchedule), args.Error(1)
}

func (m *MockScheduleService) RemainingSeats(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) GetBalance(ctx context.Context, id, userID string) (*session.Balance, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Balance), args.Error(1)
}

func (m *MockSessionService) ListTransactions(ctx context.Context, balanceID, userID string, limit, offset int) ([]*session.Transaction, error) {
	args := m.Called(ctx, balanceID, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Transaction), args.Error(1)
}

func (m *MockSessionService) AdjustBalance(ctx context.Context, input application.AdjustBalanceInput) (*session.Balance, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Balance), args.Error(1)
}

type MockSeatReconciler struct {
	mock.Mock
}

func (m *MockSeatReconciler) ReconcileSeats(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
