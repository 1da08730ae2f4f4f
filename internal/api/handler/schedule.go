package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
)

type ScheduleHandler struct {
	service ScheduleServiceInterface
}

func NewScheduleHandler(s ScheduleServiceInterface) *ScheduleHandler {
	return &ScheduleHandler{service: s}
}

type ScheduleResponse struct {
	ID              string `json:"id"`
	ClassID         string `json:"class_id"`
	StartsAt        string `json:"starts_at" example:"2026-04-01T10:00:00+09:00"`
	EndsAt          string `json:"ends_at"`
	DurationMinutes int    `json:"duration_minutes" example:"60"`
	Capacity        int    `json:"capacity" example:"12"`
	RemainingSeats  int    `json:"remaining_seats" example:"5"`
	IsCancelled     bool   `json:"is_cancelled"`
}

type AvailabilityResponse struct {
	ScheduleID     string `json:"schedule_id"`
	RemainingSeats int    `json:"remaining_seats"`
}

func toScheduleResponse(s *schedule.ClassSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:              s.ID,
		ClassID:         s.ClassID,
		StartsAt:        s.StartsAt.Format(time.RFC3339),
		EndsAt:          s.EndsAt().Format(time.RFC3339),
		DurationMinutes: s.DurationMinutes,
		Capacity:        s.Capacity,
		RemainingSeats:  s.RemainingSeats,
		IsCancelled:     s.IsCancelled,
	}
}

// List godoc
// @Summary 今後の開催枠一覧
// @Tags schedules
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Success 200 {array} ScheduleResponse
// @Router /schedules [get]
func (h *ScheduleHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := h.service.ListUpcoming(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	resp := make([]ScheduleResponse, len(list))
	for i, s := range list {
		resp[i] = toScheduleResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary 開催枠を取得
// @Tags schedules
// @Produce json
// @Param id path string true "開催枠ID"
// @Success 200 {object} ScheduleResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetSchedule(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toScheduleResponse(s))
}

// Availability godoc
// @Summary 残席数を取得
// @Description キャッシュがあればキャッシュから返します
// @Tags schedules
// @Produce json
// @Param id path string true "開催枠ID"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /schedules/{id}/availability [get]
func (h *ScheduleHandler) Availability(c echo.Context) error {
	id := c.Param("id")
	n, err := h.service.RemainingSeats(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{ScheduleID: id, RemainingSeats: n})
}
