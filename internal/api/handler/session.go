package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type SessionHandler struct {
	service SessionServiceInterface
}

func NewSessionHandler(s SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: s}
}

// GetBalance godoc
// @Summary セッション残高を取得
// @Tags sessions
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "残高ID"
// @Success 200 {object} session.Balance
// @Failure 404 {object} api.ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetBalance(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	b, err := h.service.GetBalance(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// ListTransactions godoc
// @Summary セッション台帳を取得
// @Tags sessions
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "残高ID"
// @Param limit query int false "取得件数" default(50)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} session.Transaction
// @Failure 404 {object} api.ErrorResponse
// @Router /sessions/{id}/transactions [get]
func (h *SessionHandler) ListTransactions(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	list, err := h.service.ListTransactions(c.Request().Context(), c.Param("id"), uid, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}
