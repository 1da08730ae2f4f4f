package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
	"github.com/sanosuguru/go-class-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-class-reservation/internal/infrastructure/redis"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockReservationRepository implements reservation.Repository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, r *reservation.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) GetByIDForUser(ctx context.Context, id, userID string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) LinkSession(ctx context.Context, id, sessionID string, at time.Time) error {
	args := m.Called(ctx, id, sessionID, at)
	return args.Error(0)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, id string, status reservation.Status, updatedBy *string, at time.Time) error {
	args := m.Called(ctx, id, status, updatedBy, at)
	return args.Error(0)
}

func (m *MockReservationRepository) TransitionStatus(ctx context.Context, id string, from []reservation.Status, to reservation.Status, updatedBy *string, at time.Time) error {
	args := m.Called(ctx, id, from, to, updatedBy, at)
	return args.Error(0)
}

func (m *MockReservationRepository) GetExpiredPending(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ExpirePending(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	args := m.Called(ctx, ids, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReservationRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReservationRepository) CountOccupiedSeats(ctx context.Context, scheduleID string) (int, error) {
	args := m.Called(ctx, scheduleID)
	return args.Int(0), args.Error(1)
}

// MockScheduleRepository implements schedule.Repository
type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) Create(ctx context.Context, sc *schedule.ClassSchedule) error {
	args := m.Called(ctx, sc)
	return args.Error(0)
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id string) (*schedule.ClassSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedule.ClassSchedule), args.Error(1)
}

func (m *MockScheduleRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*schedule.ClassSchedule, error) {
	args := m.Called(ctx, from, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*schedule.ClassSchedule), args.Error(1)
}

func (m *MockScheduleRepository) DecrementSeats(ctx context.Context, id string, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockScheduleRepository) RestoreSeats(ctx context.Context, id string, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockScheduleRepository) CompareAndSetSeats(ctx context.Context, id string, expected, remaining int) error {
	args := m.Called(ctx, id, expected, remaining)
	return args.Error(0)
}

// MockBalanceRepository implements session.Repository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) Create(ctx context.Context, b *session.Balance) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBalanceRepository) GetByID(ctx context.Context, id string) (*session.Balance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Balance), args.Error(1)
}

func (m *MockBalanceRepository) FindEligible(ctx context.Context, userID string, required int, now time.Time) (*session.Balance, error) {
	args := m.Called(ctx, userID, required, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Deduct(ctx context.Context, id string, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockBalanceRepository) Restore(ctx context.Context, id string, n int) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockBalanceRepository) Adjust(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// MockLedgerRepository implements session.LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, tx *session.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListByReservation(ctx context.Context, reservationID string) ([]*session.Transaction, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ListByBalance(ctx context.Context, balanceID string, limit, offset int) ([]*session.Transaction, error) {
	args := m.Called(ctx, balanceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Transaction), args.Error(1)
}

// MockOracle implements AvailabilityOracle
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Check(ctx context.Context, scheduleID string, partySize int, userID string, sessionsRequired int) (*Decision, error) {
	args := m.Called(ctx, scheduleID, partySize, userID, sessionsRequired)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

// MockInvalidator implements CacheInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, scheduleID string) error {
	args := m.Called(ctx, scheduleID)
	return args.Error(0)
}

// MockLockManager implements redisinfra.LockManagerInterface
type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

func (m *MockLockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryInterval time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl, maxRetries, retryInterval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

// MockLock implements redisinfra.Lock
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLock) Extend(ctx context.Context, ttl time.Duration) error {
	args := m.Called(ctx, ttl)
	return args.Error(0)
}

// MockScheduleCache implements redisinfra.ScheduleCacheInterface
type MockScheduleCache struct {
	mock.Mock
}

func (m *MockScheduleCache) GetRemainingSeats(ctx context.Context, scheduleID string) (int, error) {
	args := m.Called(ctx, scheduleID)
	return args.Int(0), args.Error(1)
}

func (m *MockScheduleCache) SetRemainingSeats(ctx context.Context, scheduleID string, count int, ttl time.Duration) error {
	args := m.Called(ctx, scheduleID, count, ttl)
	return args.Error(0)
}

func (m *MockScheduleCache) Invalidate(ctx context.Context, scheduleID string) error {
	args := m.Called(ctx, scheduleID)
	return args.Error(0)
}
