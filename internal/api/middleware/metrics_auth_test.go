package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-class-reservation/internal/config"
)

func metricsHandler(c echo.Context) error {
	return c.String(http.StatusOK, "metrics")
}

func TestMetricsBasicAuth_NoCredentials(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := MetricsBasicAuth(config.MetricsConfig{})(metricsHandler)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestMetricsBasicAuth_Credentials(t *testing.T) {
	cfg := config.MetricsConfig{User: "testuser", Password: "testpass"}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "正しい認証情報", authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte("testuser:testpass")), wantStatus: http.StatusOK},
		{name: "間違った認証情報", authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte("wronguser:wrongpass")), wantStatus: http.StatusUnauthorized},
		{name: "ヘッダーなし", authHeader: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/metrics", metricsHandler, MetricsBasicAuth(cfg))

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.authHeader != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.authHeader)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
