package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
)

type memLogWriter struct {
	entries []model.RequestLog
	err     error
}

func (w *memLogWriter) Insert(_ context.Context, l model.RequestLog) error {
	w.entries = append(w.entries, l)
	return w.err
}

func TestRequestLog(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	w := &memLogWriter{}
	e := echo.New()
	e.Use(RequestLog(w, clock.NewManual(now)))
	e.GET("/v1/meals", func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{}) })
	e.GET("/v1/foods/:id", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "food not found") })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/meals?date=2024-03-10", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/foods/99", nil))

	require.Len(t, w.entries, 2)
	assert.Equal(t, model.RequestLog{Method: "GET", URL: "/v1/meals", Query: "date=2024-03-10",
		StatusCode: 200, Message: "OK", CreatedAt: now}, w.entries[0])
	assert.Equal(t, 404, w.entries[1].StatusCode)
	assert.Contains(t, w.entries[1].Message, "food not found")
}

func TestRequestLog_InsertFailureIsIgnored(t *testing.T) {
	w := &memLogWriter{err: errors.New("db down")}
	e := echo.New()
	e.Use(RequestLog(w, clock.System{}))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestLog_CapsColumns(t *testing.T) {
	w := &memLogWriter{}
	e := echo.New()
	e.Use(RequestLog(w, clock.System{}))
	e.GET("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "x"+strings.Repeat("식", 300))
	})

	path := "/" + strings.Repeat("a", 3000)
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path+"?q="+strings.Repeat("b", 3000), nil))

	require.Len(t, w.entries, 1)
	got := w.entries[0]
	assert.Len(t, got.URL, maxURLLen)
	assert.Len(t, got.Query, maxURLLen)
	assert.True(t, utf8.ValidString(got.Message))
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Message), maxMessageLen)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "한국", truncate("한국어", 2))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "", truncate("abc", 0))
}
