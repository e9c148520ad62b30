package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wellness-api/internal/config"
)

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "foods", MaxBodyBytes: 1024,
	}
}

func TestResponseCache_HitAfterMiss(t *testing.T) {
	mr, rdb := newTestRedis(t)
	e := echo.New()
	calls := 0
	e.GET("/v1/foods/:category_id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"category_id": c.Param("category_id"), "food_name": "Bibimbap"})
	}, ResponseCache(cacheCfg(), rdb))

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/foods/12", nil))
	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/foods/12", nil))
	other := httptest.NewRecorder()
	e.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/v1/foods/13", nil))

	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Len(t, mr.Keys(), 2)

	mr.FastForward(2 * time.Minute)
	third := httptest.NewRecorder()
	e.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/v1/foods/12", nil))
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsErrorsAndOtherMethods(t *testing.T) {
	mr, rdb := newTestRedis(t)
	e := echo.New()
	mw := ResponseCache(cacheCfg(), rdb)
	e.GET("/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "food not found"})
	}, mw)
	e.POST("/foods", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, mw)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/foods", nil))
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, mr.Keys())
}

func TestResponseCache_OversizedBodyNotStored(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := cacheCfg()
	cfg.MaxBodyBytes = 8
	e := echo.New()
	e.GET("/v1/foods", func(c echo.Context) error {
		return c.String(http.StatusOK, "a body well over eight bytes")
	}, ResponseCache(cfg, rdb))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/foods", nil))
	assert.Equal(t, "a body well over eight bytes", rec.Body.String())
	assert.Empty(t, mr.Keys())
}
