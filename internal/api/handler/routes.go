package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-class-reservation/internal/api/middleware"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health       *HealthHandler
	Reservations *ReservationHandler
	Schedules    *ScheduleHandler
	Sessions     *SessionHandler
	Admin        *AdminHandler
}

// Register は /health と /api/v1 配下のルートを登録する
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")

	v1.POST("/reservations", h.Reservations.Create)
	v1.GET("/reservations", h.Reservations.GetUserReservations)
	v1.GET("/reservations/:id", h.Reservations.GetByID)
	v1.POST("/reservations/:id/cancel", h.Reservations.Cancel)

	v1.GET("/schedules", h.Schedules.List)
	v1.GET("/schedules/:id", h.Schedules.GetByID)
	v1.GET("/schedules/:id/availability", h.Schedules.Availability)

	v1.GET("/sessions/:id", h.Sessions.GetBalance)
	v1.GET("/sessions/:id/transactions", h.Sessions.ListTransactions)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.POST("/schedules", h.Admin.CreateSchedule)
	admin.POST("/schedules/reconcile", h.Admin.ReconcileSeats)
	admin.PUT("/reservations/:id/status", h.Admin.UpdateReservationStatus)
	admin.POST("/reservations/expire", h.Admin.ExpireReservations)
	admin.POST("/sessions/:id/adjust", h.Admin.AdjustSession)
}
