package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Middleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/payers/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	for _, path := range []string{"/api/v1/payers/1", "/api/v1/payers/2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	m.Throttled("/api/v1/payments")
	m.RemindersSent(3, 1)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `profpay_http_requests_total{method="GET",path="/api/v1/payers/:id",status="200"} 2`), body)
	assert.Contains(t, body, `profpay_http_throttled_requests_total{path="/api/v1/payments"} 1`)
	assert.Contains(t, body, `profpay_reminders_total{outcome="sent"} 3`)
}
