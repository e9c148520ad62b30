package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/repository"
)

// FoodCatalog is satisfied by *repository.FoodRepo.
type FoodCatalog interface {
	GetByCategory(ctx context.Context, categoryID uint32) (model.Food, error)
	List(ctx context.Context) ([]model.Food, error)
}

type FoodHandler struct {
	Foods FoodCatalog
}

func NewFoodHandler(f FoodCatalog) *FoodHandler { return &FoodHandler{Foods: f} }

// List returns the whole classifier catalog.
func (h *FoodHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	foods, err := h.Foods.List(ctx)
	if err != nil {
		return fail(c, "list foods", err)
	}
	items := make([]foodPart, 0, len(foods))
	for _, f := range foods {
		items = append(items, foodOf(f))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one category's nutrients per serving.
func (h *FoodHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("category_id"), 10, 32)
	if err != nil {
		return badRequest(c, "invalid category_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	f, err := h.Foods.GetByCategory(ctx, uint32(id))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"status": "FOOD_NOT_FOUND", "error": "food not found"})
	}
	if err != nil {
		return fail(c, "get food", err)
	}
	return c.JSON(http.StatusOK, foodOf(f))
}
