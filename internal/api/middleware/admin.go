package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderAdminID は管理者操作の実行者を示すヘッダー
const HeaderAdminID = "X-Admin-ID"

// RequireAdmin は X-Admin-ID ヘッダーのないリクエストを 401 で拒否する
// 管理者IDの真正性は前段のゲートウェイで保証される前提
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(HeaderAdminID) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "管理者IDが必要です")
			}
			return next(c)
		}
	}
}
