package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-class-reservation/internal/pkg/logger"
)

// HeaderUserID は利用者を示すヘッダー
const HeaderUserID = "X-User-ID"

// RequestLogger はリクエストの構造化ログを出力するミドルウェア
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = res.Header().Get(echo.HeaderXRequestID)
			}

			err := next(c)
			if err != nil {
				// ステータスを確定させてからログに出す
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Int64("size", res.Size),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if userID := req.Header.Get(HeaderUserID); userID != "" {
				fields = append(fields, zap.String("user_id", userID))
			}
			if adminID := req.Header.Get(HeaderAdminID); adminID != "" {
				fields = append(fields, zap.String("admin_id", adminID))
			}

			switch {
			case res.Status >= 500:
				logger.Error("server error", append(fields, zap.Error(err))...)
			case res.Status >= 400:
				logger.Warn("client error", append(fields, zap.Error(err))...)
			default:
				logger.Info("request completed", fields...)
			}

			return err
		}
	}
}

// RequestIDMiddleware はリクエストIDを生成・付与するミドルウェア
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
				c.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			return next(c)
		}
	}
}
