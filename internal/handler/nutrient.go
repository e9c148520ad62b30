package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/middleware"
	"github.com/iliyamo/wellness-api/internal/service"
)

// IntakeService is the subset of *service.IntakeService the handlers use.
type IntakeService interface {
	Calendar
	Summary(ctx context.Context, userID uint64, date clock.Date) (service.DailySummary, error)
}

type NutrientHandler struct {
	Intake IntakeService
}

func NewNutrientHandler(i IntakeService) *NutrientHandler { return &NutrientHandler{Intake: i} }

// Daily reports the recommendation next to what was eaten on ?date=.
func (h *NutrientHandler) Daily(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": middleware.StatusTokenInvalid, "error": "unauthenticated"})
	}
	date, ok := dateParam(c, h.Intake)
	if !ok {
		return badRequest(c, "date must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Intake.Summary(ctx, u.ID, date)
	if err != nil {
		return fail(c, "daily nutrients", err)
	}
	return respond(c, http.StatusOK, echo.Map{
		"recommendation": recommendationOf(s.Recommendation),
		"total":          dailyTotalOf(s.Total),
	})
}
