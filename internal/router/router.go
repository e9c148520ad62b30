package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/wellness-api/internal/config"
	"github.com/iliyamo/wellness-api/internal/handler"
	"github.com/iliyamo/wellness-api/internal/middleware"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health    echo.HandlerFunc
	Auth      *handler.AuthHandler
	Meals     *handler.MealHandler
	Nutrients *handler.NutrientHandler
	Foods     *handler.FoodHandler
}

// RegisterRoutes wires public, auth and session-protected routes.  Redis
// may be nil, in which case rate limiting and catalog caching are skipped.
func RegisterRoutes(e *echo.Echo, h Handlers, sessions middleware.SessionResolver, rdb *redis.Client,
	rl config.RateLimitConfig, cache config.CacheConfig) {
	e.GET("/healthz", h.Health)

	// token-issuing endpoints; no session required
	a := e.Group("/v1/auth")
	a.POST("/register", h.Auth.Register)
	a.POST("/login", h.Auth.Login)
	a.POST("/refresh-access", h.Auth.RefreshAccess)

	// food catalog is public and read-mostly
	foods := e.Group("/v1/foods", middleware.ResponseCache(cache, rdb))
	foods.GET("", h.Foods.List)
	foods.GET("/:category_id", h.Foods.Get)

	// Session runs before the limiter so buckets are keyed per user.
	v1 := e.Group("/v1", middleware.Session(sessions), middleware.RateLimit(rl, rdb))
	v1.GET("/users/me", h.Auth.Me)
	v1.PATCH("/users/me", h.Auth.UpdateProfile)
	v1.POST("/meals/predict", h.Meals.Predict)
	v1.GET("/meals", h.Meals.List)
	v1.GET("/nutrients/daily", h.Nutrients.Daily)
}
