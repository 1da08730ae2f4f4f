package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-class-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-class-reservation/internal/application"
)

// AdminHandler は管理者向けの操作。ルートは middleware.RequireAdmin の後ろに置く
type AdminHandler struct {
	reservations ReservationAdminServiceInterface
	schedules    ScheduleServiceInterface
	sessions     SessionServiceInterface
	reconciler   SeatReconcilerInterface
	now          func() time.Time
}

func NewAdminHandler(rs ReservationAdminServiceInterface, ss ScheduleServiceInterface, sess SessionServiceInterface, rec SeatReconcilerInterface) *AdminHandler {
	return &AdminHandler{reservations: rs, schedules: ss, sessions: sess, reconciler: rec, now: time.Now}
}

type CreateScheduleRequest struct {
	ClassID         string    `json:"class_id" validate:"required"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1"`
	Capacity        int       `json:"capacity" validate:"required,min=1"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,reservation_status" example:"attended"`
}

type AdjustSessionRequest struct {
	Delta  int    `json:"delta" validate:"required" example:"-1"`
	Reason string `json:"reason" validate:"required,max=500"`
}

type CountResponse struct {
	Count int `json:"count"`
}

// CreateSchedule godoc
// @Summary 開催枠を作成
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Admin-ID header string true "管理者ID"
// @Param request body CreateScheduleRequest true "開催枠"
// @Success 201 {object} ScheduleResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /admin/schedules [post]
func (h *AdminHandler) CreateSchedule(c echo.Context) error {
	var req CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.schedules.CreateSchedule(c.Request().Context(), application.CreateScheduleInput{
		ClassID: req.ClassID, StartsAt: req.StartsAt,
		DurationMinutes: req.DurationMinutes, Capacity: req.Capacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toScheduleResponse(s))
}

// UpdateReservationStatus godoc
// @Summary 予約ステータスを上書き
// @Description 遷移の妥当性は検証しません。残席は再計算ジョブで整合されます
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Admin-ID header string true "管理者ID"
// @Param id path string true "予約ID"
// @Param request body UpdateStatusRequest true "新しいステータス"
// @Success 200 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/reservations/{id}/status [put]
func (h *AdminHandler) UpdateReservationStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	adminID := c.Request().Header.Get(middleware.HeaderAdminID)
	r, err := h.reservations.UpdateReservationStatus(c.Request().Context(), c.Param("id"), req.Status, &adminID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ExpireReservations godoc
// @Summary 期限切れ予約の失効を即時実行
// @Tags admin
// @Produce json
// @Param X-Admin-ID header string true "管理者ID"
// @Success 200 {object} CountResponse
// @Router /admin/reservations/expire [post]
func (h *AdminHandler) ExpireReservations(c echo.Context) error {
	n, err := h.reservations.SweepExpired(c.Request().Context(), h.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

// AdjustSession godoc
// @Summary セッション残高を調整
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Admin-ID header string true "管理者ID"
// @Param id path string true "残高ID"
// @Param request body AdjustSessionRequest true "増減"
// @Success 200 {object} session.Balance
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "残高が負になる"
// @Router /admin/sessions/{id}/adjust [post]
func (h *AdminHandler) AdjustSession(c echo.Context) error {
	var req AdjustSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.sessions.AdjustBalance(c.Request().Context(), application.AdjustBalanceInput{
		BalanceID: c.Param("id"), Delta: req.Delta, Reason: req.Reason,
		AdminID: c.Request().Header.Get(middleware.HeaderAdminID),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// ReconcileSeats godoc
// @Summary 残席の再計算を即時実行
// @Tags admin
// @Produce json
// @Param X-Admin-ID header string true "管理者ID"
// @Success 200 {object} CountResponse
// @Router /admin/schedules/reconcile [post]
func (h *AdminHandler) ReconcileSeats(c echo.Context) error {
	n, err := h.reconciler.ReconcileSeats(c.Request().Context(), h.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}
