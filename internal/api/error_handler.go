package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/application"
	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-class-reservation/internal/domain/session"
	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error    string                  `json:"error"`
	Code     int                     `json:"code,omitempty"`
	Kind     string                  `json:"kind,omitempty"`
	Reason   string                  `json:"reason,omitempty"`
	Schedule *schedule.ClassSchedule `json:"schedule,omitempty"`
	Details  string                  `json:"details,omitempty"`
}

var kindStatus = map[application.ErrorKind]int{
	application.KindAvailabilityDenied:     http.StatusConflict,
	application.KindInsufficientSessions:   http.StatusConflict,
	application.KindInvalidState:           http.StatusConflict,
	application.KindNotFoundOrUnauthorized: http.StatusNotFound,
	application.KindInvalidInput:           http.StatusBadRequest,
	application.KindStoreWriteFailed:       http.StatusInternalServerError,
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, resp := toErrorResponse(err)

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, resp); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func toErrorResponse(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return he.Code, ErrorResponse{Error: message, Code: he.Code}
	}

	if be, ok := application.AsBookingError(err); ok {
		code, ok := kindStatus[be.Kind]
		if !ok {
			code = http.StatusInternalServerError
		}
		resp := ErrorResponse{Error: be.Message, Code: code, Kind: string(be.Kind), Reason: be.Reason, Schedule: be.Schedule}
		if code >= 500 {
			resp.Error = "内部サーバーエラー"
		}
		return code, resp
	}

	code := statusForDomainError(err)
	if code >= 500 {
		return code, ErrorResponse{Error: "内部サーバーエラー", Code: code}
	}
	return code, ErrorResponse{Error: err.Error(), Code: code}
}

func statusForDomainError(err error) int {
	switch {
	case errors.Is(err, application.ErrStoreWriteFailed):
		return http.StatusInternalServerError
	case errors.Is(err, schedule.ErrScheduleNotFound),
		errors.Is(err, session.ErrBalanceNotFound),
		errors.Is(err, reservation.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNegativeBalance):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrClassIDRequired),
		errors.Is(err, schedule.ErrStartsAtRequired),
		errors.Is(err, schedule.ErrInvalidDuration),
		errors.Is(err, schedule.ErrInvalidCapacity),
		errors.Is(err, schedule.ErrInvalidRemainingSeats),
		errors.Is(err, session.ErrInvalidAmount),
		errors.Is(err, session.ErrReasonRequired),
		errors.Is(err, reservation.ErrUnknownStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
