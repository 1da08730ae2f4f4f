package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
// reservation_status タグで予約ステータスの値を検証できる
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("reservation_status", func(fl validator.FieldLevel) bool {
		_, err := reservation.ParseStatus(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行する
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
