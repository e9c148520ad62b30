package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/middleware"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/service"
)

// maxPhotoBytes caps a meal photo upload.
const maxPhotoBytes = 10 << 20

// MealService is the subset of *service.MealService the handlers use.
type MealService interface {
	LogMealPhoto(ctx context.Context, userID uint64, p service.Photo) (service.MealResult, error)
	ListMeals(ctx context.Context, userID uint64, date clock.Date) ([]model.MealEntry, error)
}

// Calendar supplies today's local date for requests without ?date=.
type Calendar interface {
	Today() clock.Date
}

type MealHandler struct {
	Meals    MealService
	Calendar Calendar
}

func NewMealHandler(m MealService, cal Calendar) *MealHandler {
	return &MealHandler{Meals: m, Calendar: cal}
}

// Predict accepts a multipart "file", classifies it and records the meal.
func (h *MealHandler) Predict(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": middleware.StatusTokenInvalid, "error": "unauthenticated"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "multipart field \"file\" required")
	}
	if fh.Size > maxPhotoBytes {
		return respond(c, http.StatusRequestEntityTooLarge, echo.Map{"status": "PHOTO_TOO_LARGE", "error": "photo exceeds 10MB"})
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
	if err != nil {
		return badRequest(c, "unreadable file")
	}

	// upload and classification are both remote calls
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.Meals.LogMealPhoto(ctx, u.ID, service.Photo{Filename: fh.Filename, Data: data})
	if err != nil {
		return fail(c, "log meal", err)
	}
	food := foodOf(res.Food)
	meal := mealOf(res.Meal)
	meal.Food = &food
	return respond(c, http.StatusCreated, echo.Map{
		"meal":           meal,
		"recommendation": recommendationOf(res.Recommendation),
		"total":          dailyTotalOf(res.Total),
	})
}

// List returns the meals recorded for ?date= (default today), oldest first.
func (h *MealHandler) List(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": middleware.StatusTokenInvalid, "error": "unauthenticated"})
	}
	date, ok := dateParam(c, h.Calendar)
	if !ok {
		return badRequest(c, "date must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Meals.ListMeals(ctx, u.ID, date)
	if err != nil {
		return fail(c, "list meals", err)
	}
	items := make([]mealPart, 0, len(entries))
	for _, e := range entries {
		m := mealOf(e.MealLog)
		f := foodOf(e.Food)
		m.Food = &f
		items = append(items, m)
	}
	return respond(c, http.StatusOK, echo.Map{"date": date.String(), "meals": items})
}

// dateParam reads ?date=, defaulting to the local today.
func dateParam(c echo.Context, cal Calendar) (clock.Date, bool) {
	raw := c.QueryParam("date")
	if raw == "" {
		return cal.Today(), true
	}
	d, err := clock.ParseDate(raw)
	return d, err == nil
}
