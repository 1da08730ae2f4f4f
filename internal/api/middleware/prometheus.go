package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-class-reservation/internal/pkg/metrics"
)

// PrometheusMiddleware はHTTPメトリクスを収集するミドルウェア
// パスはルート定義（/api/v1/reservations/:id など）で集計する
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// エラーハンドラーでステータスを確定させる
				c.Error(err)
			}

			status := c.Response().Status
			var he *echo.HTTPError
			if !c.Response().Committed && errors.As(err, &he) {
				status = he.Code
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
