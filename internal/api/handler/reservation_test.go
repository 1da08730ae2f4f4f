package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-class-reservation/internal/api"
	"github.com/sanosuguru/go-class-reservation/internal/application"
	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
)

func testReservation(status reservation.Status) *reservation.Reservation {
	now := time.Now()
	return &reservation.Reservation{
		ID:            "res-123",
		UserID:        "user-123",
		ScheduleID:    "sch-1",
		Status:        status,
		StudentCount:  2,
		TotalPrice:    6000,
		PaymentMethod: reservation.PaymentMethodCard,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// newRouter は全ルートを登録した Echo を返す
func newRouter(rs *MockReservationService, ss *MockScheduleService, sess *MockSessionService, rec *MockSeatReconciler) *echo.Echo {
	e := NewTestEcho()
	h := &Handlers{
		Health:       NewHealthHandler(),
		Reservations: NewReservationHandler(rs),
		Schedules:    NewScheduleHandler(ss),
		Sessions:     NewSessionHandler(sess),
		Admin:        NewAdminHandler(rs, ss, sess, rec),
	}
	h.Register(e)
	return e
}

func doRequest(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

var asUser = map[string]string{"X-User-ID": "user-123"}

func TestReservationHandler_Create(t *testing.T) {
	t.Run("正常に予約を作成できる", func(t *testing.T) {
		rs := new(MockReservationService)
		rs.On("CreateReservation", mock.Anything, mock.MatchedBy(func(in application.CreateReservationInput) bool {
			return in.UserID == "user-123" && in.ScheduleID == "sch-1" && in.StudentCount == 2 &&
				in.SessionsRequired != nil && *in.SessionsRequired == 0
		})).Return(testReservation(reservation.StatusConfirmed), nil)
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodPost, "/api/v1/reservations",
			`{"schedule_id":"sch-1","student_count":2,"total_price":6000,"payment_method":"card","sessions_required":0}`, asUser)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "res-123", resp.ID)
		assert.Equal(t, "confirmed", resp.Status)
		rs.AssertExpectations(t)
	})

	t.Run("ユーザーIDがない場合は401", func(t *testing.T) {
		rs := new(MockReservationService)
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodPost, "/api/v1/reservations",
			`{"schedule_id":"sch-1","student_count":1,"payment_method":"card"}`, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		rs.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
	})

	t.Run("バリデーションエラー", func(t *testing.T) {
		rs := new(MockReservationService)
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodPost, "/api/v1/reservations",
			`{"schedule_id":"sch-1","student_count":0,"payment_method":"card"}`, asUser)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("空きがない場合は409と残席情報を返す", func(t *testing.T) {
		rs := new(MockReservationService)
		snapshot := &schedule.ClassSchedule{ID: "sch-1", Capacity: 10, RemainingSeats: 1}
		rs.On("CreateReservation", mock.Anything, mock.Anything).Return(nil, &application.BookingError{
			Kind: application.KindAvailabilityDenied, Message: "残席が不足しています",
			Reason: application.ReasonInsufficientSeats, Schedule: snapshot,
		})
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodPost, "/api/v1/reservations",
			`{"schedule_id":"sch-1","student_count":2,"payment_method":"card"}`, asUser)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "availability_denied", resp.Kind)
		assert.Equal(t, "insufficient_seats", resp.Reason)
		require.NotNil(t, resp.Schedule)
		assert.Equal(t, 1, resp.Schedule.RemainingSeats)
	})

	t.Run("ストア障害は500で詳細を返さない", func(t *testing.T) {
		rs := new(MockReservationService)
		rs.On("CreateReservation", mock.Anything, mock.Anything).Return(nil, &application.BookingError{
			Kind: application.KindStoreWriteFailed, Message: "座席の確保に失敗しました", Err: errors.New("connection reset"),
		})
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodPost, "/api/v1/reservations",
			`{"schedule_id":"sch-1","student_count":2,"payment_method":"card"}`, asUser)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}

func TestReservationHandler_GetByID(t *testing.T) {
	t.Run("自分の予約を取得できる", func(t *testing.T) {
		rs := new(MockReservationService)
		rs.On("GetReservation", mock.Anything, "res-123", "user-123").Return(testReservation(reservation.StatusPending), nil)
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodGet, "/api/v1/reservations/res-123", "", asUser)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	})

	t.Run("他人の予約は404", func(t *testing.T) {
		rs := new(MockReservationService)
		rs.On("GetReservation", mock.Anything, "res-123", "user-123").Return(nil, &application.BookingError{
			Kind: application.KindNotFoundOrUnauthorized, Message: "予約が見つかりません",
		})
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodGet, "/api/v1/reservations/res-123", "", asUser)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReservationHandler_GetUserReservations(t *testing.T) {
	rs := new(MockReservationService)
	rs.On("GetUserReservations", mock.Anything, "user-123", 5, 10).
		Return([]*reservation.Reservation{testReservation(reservation.StatusConfirmed)}, nil)
	e := newRouter(rs, nil, nil, nil)

	rec := doRequest(e, http.MethodGet, "/api/v1/reservations?limit=5&offset=10", "", asUser)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestReservationHandler_Cancel(t *testing.T) {
	t.Run("キャンセルできる", func(t *testing.T) {
		rs := new(MockReservationService)
		rs.On("CancelReservation", mock.Anything, "res-123", "user-123").Return(testReservation(reservation.StatusCancelled), nil)
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodPost, "/api/v1/reservations/res-123/cancel", "", asUser)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"cancelled"`)
	})

	t.Run("キャンセル済みは409", func(t *testing.T) {
		rs := new(MockReservationService)
		rs.On("CancelReservation", mock.Anything, "res-123", "user-123").Return(nil, &application.BookingError{
			Kind: application.KindInvalidState, Message: "この予約はキャンセルできません",
		})
		e := newRouter(rs, nil, nil, nil)

		rec := doRequest(e, http.MethodPost, "/api/v1/reservations/res-123/cancel", "", asUser)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_state")
	})
}

func TestToReservationResponse(t *testing.T) {
	expiresAt := time.Now().Add(15 * time.Minute)
	notes := "初回"
	r := testReservation(reservation.StatusPending)
	r.ExpiresAt = &expiresAt
	r.Notes = &notes

	resp := toReservationResponse(r)

	assert.Equal(t, r.ID, resp.ID)
	assert.Equal(t, r.ScheduleID, resp.ScheduleID)
	assert.Equal(t, string(r.Status), resp.Status)
	assert.Equal(t, r.StudentCount, resp.StudentCount)
	assert.Equal(t, r.ExpiresAt, resp.ExpiresAt)
	assert.Equal(t, r.Notes, resp.Notes)
}
