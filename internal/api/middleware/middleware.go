package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-class-reservation/internal/pkg/metrics"
)

// SetupMiddleware は共通ミドルウェアを設定する。m が nil ならHTTPメトリクスは収集しない
func SetupMiddleware(e *echo.Echo, m *metrics.Metrics) {
	e.Use(RequestIDMiddleware())

	// 構造化リクエストログ（zap）
	e.Use(RequestLogger())

	e.Use(middleware.Recover())

	if m != nil {
		e.Use(PrometheusMiddleware(m))
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.POST},
		AllowHeaders: []string{echo.HeaderContentType, HeaderUserID, HeaderAdminID},
	}))
}
