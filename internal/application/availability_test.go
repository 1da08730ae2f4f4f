package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
)

func TestScheduleAvailability_Check(t *testing.T) {
	clock := func() time.Time { return fixedNow }

	tests := []struct {
		name        string
		schedule    *schedule.ClassSchedule
		scheduleErr error
		partySize   int
		required    int
		requireSess bool
		balance     *session.Balance
		balanceErr  error
		wantAllowed bool
		wantCode    string
		wantBalance bool
	}{
		{
			name: "残席があれば許可", schedule: testSchedule(), partySize: 2, required: 0,
			wantAllowed: true,
		},
		{
			name: "存在しない開催枠", scheduleErr: schedule.ErrScheduleNotFound, partySize: 1,
			wantCode: ReasonScheduleNotFound,
		},
		{
			name: "休講", schedule: func() *schedule.ClassSchedule { s := testSchedule(); s.IsCancelled = true; return s }(),
			partySize: 1, wantCode: ReasonScheduleCancelled,
		},
		{
			name: "開始済み", schedule: func() *schedule.ClassSchedule { s := testSchedule(); s.StartsAt = fixedNow.Add(-time.Minute); return s }(),
			partySize: 1, wantCode: ReasonScheduleStarted,
		},
		{
			name: "残席不足", schedule: func() *schedule.ClassSchedule { s := testSchedule(); s.RemainingSeats = 2; return s }(),
			partySize: 3, wantCode: ReasonInsufficientSeats,
		},
		{
			name: "残高があれば返す", schedule: testSchedule(), partySize: 1, required: 1,
			balance: testBalance(3), wantAllowed: true, wantBalance: true,
		},
		{
			name: "残高がなくても既定では許可", schedule: testSchedule(), partySize: 1, required: 1,
			balanceErr: session.ErrBalanceNotFound, wantAllowed: true,
		},
		{
			name: "残高必須なら拒否", schedule: testSchedule(), partySize: 1, required: 1, requireSess: true,
			balanceErr: session.ErrBalanceNotFound, wantCode: ReasonInsufficientSessions,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sr := new(MockScheduleRepository)
			br := new(MockBalanceRepository)
			sr.On("GetByID", ctx, "sch-1").Return(tt.schedule, tt.scheduleErr)
			if tt.required > 0 && (tt.balance != nil || tt.balanceErr != nil) {
				br.On("FindEligible", ctx, "user-1", tt.required, fixedNow).Return(tt.balance, tt.balanceErr)
			}

			oracle := NewScheduleAvailability(sr, br, WithAvailabilityClock(clock), WithSessionRequirement(tt.requireSess))
			d, err := oracle.Check(ctx, "sch-1", tt.partySize, "user-1", tt.required)

			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			assert.Equal(t, tt.wantCode, d.Code)
			assert.Equal(t, tt.wantBalance, d.Balance != nil)
			br.AssertExpectations(t)
		})
	}
}

func TestScheduleAvailability_StoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("開催枠の取得失敗", func(t *testing.T) {
		sr := new(MockScheduleRepository)
		sr.On("GetByID", ctx, "sch-1").Return(nil, errors.New("db error"))

		_, err := NewScheduleAvailability(sr, new(MockBalanceRepository)).Check(ctx, "sch-1", 1, "user-1", 0)
		assert.Error(t, err)
	})

	t.Run("残高の取得失敗", func(t *testing.T) {
		sr := new(MockScheduleRepository)
		br := new(MockBalanceRepository)
		sr.On("GetByID", ctx, "sch-1").Return(testSchedule(), nil)
		br.On("FindEligible", ctx, "user-1", 1, fixedNow).Return(nil, errors.New("db error"))

		oracle := NewScheduleAvailability(sr, br, WithAvailabilityClock(func() time.Time { return fixedNow }))
		_, err := oracle.Check(ctx, "sch-1", 1, "user-1", 1)
		assert.Error(t, err)
	})
}
