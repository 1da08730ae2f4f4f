package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-class-reservation/internal/config"
)

// MetricsBasicAuth は /metrics エンドポイント用の Basic 認証ミドルウェア
// 認証情報が設定されていない場合は素通しする（ローカル開発用）
func MetricsBasicAuth(cfg config.MetricsConfig) echo.MiddlewareFunc {
	if !cfg.IsEnabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return middleware.BasicAuth(func(username, password string, c echo.Context) (bool, error) {
		// タイミング攻撃を防ぐため ConstantTimeCompare を使用
		userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.User)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1

		return userMatch && passMatch, nil
	})
}
