package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingError(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("分類と原因の両方に一致する", func(t *testing.T) {
		err := newStoreFailed("予約の作成に失敗しました", cause)
		assert.ErrorIs(t, err, ErrStoreWriteFailed)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrAvailabilityDenied)
		assert.Equal(t, "予約の作成に失敗しました: connection refused", err.Error())
	})

	t.Run("ラップされていても取り出せる", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", newDenied(ReasonInsufficientSeats, "残席が不足しています", testSchedule()))
		be, ok := AsBookingError(wrapped)
		require.True(t, ok)
		assert.Equal(t, KindAvailabilityDenied, be.Kind)
		assert.Equal(t, "sch-1", be.Schedule.ID)
		assert.Equal(t, "残席が不足しています", be.Error())
	})

	t.Run("BookingError以外", func(t *testing.T) {
		_, ok := AsBookingError(cause)
		assert.False(t, ok)
	})
}
