package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-class-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-class-reservation/internal/application"
	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	ScheduleID       string  `json:"schedule_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	StudentCount     int     `json:"student_count" validate:"required,min=1" example:"2"`
	TotalPrice       int     `json:"total_price" validate:"min=0" example:"6000"`
	PaymentMethod    string  `json:"payment_method" validate:"required" example:"card"`
	Notes            *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	SessionsRequired *int    `json:"sessions_required,omitempty" validate:"omitempty,min=0" example:"1"`
}

type ReservationResponse struct {
	ID            string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID        string     `json:"user_id" example:"user-123"`
	ScheduleID    string     `json:"schedule_id"`
	Status        string     `json:"status" example:"confirmed"`
	SessionID     *string    `json:"session_id,omitempty"`
	StudentCount  int        `json:"student_count" example:"2"`
	TotalPrice    int        `json:"total_price" example:"6000"`
	PaymentMethod string     `json:"payment_method" example:"card"`
	Notes         *string    `json:"notes,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, UserID: r.UserID, ScheduleID: r.ScheduleID,
		Status: string(r.Status), SessionID: r.SessionID,
		StudentCount: r.StudentCount, TotalPrice: r.TotalPrice,
		PaymentMethod: r.PaymentMethod, Notes: r.Notes, ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func userID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(middleware.HeaderUserID)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	return id, nil
}

// Create godoc
// @Summary 予約を作成
// @Description 開催枠の座席を確保し、必要ならセッション残高を消費します。カード払いは即時確定、それ以外は15分間の仮押さえです
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "空きなし・残高不足"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.service.CreateReservation(c.Request().Context(), application.CreateReservationInput{
		UserID: uid, ScheduleID: req.ScheduleID, StudentCount: req.StudentCount,
		TotalPrice: req.TotalPrice, PaymentMethod: req.PaymentMethod,
		Notes: req.Notes, SessionsRequired: req.SessionsRequired,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 自分の予約を取得します。他人の予約は存在しないものとして扱います
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// GetUserReservations godoc
// @Summary ユーザーの予約一覧を取得
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /reservations [get]
func (h *ReservationHandler) GetUserReservations(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	reservations, err := h.service.GetUserReservations(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = toReservationResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 保留中または確定済みの予約をキャンセルし、座席を解放します。消費したセッションは返却されません
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	r, err := h.service.CancelReservation(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
