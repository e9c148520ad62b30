package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/middleware"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/service"
)

type updateProfileReq struct {
	Nickname  *string          `json:"nickname"`
	BirthDate *string          `json:"birth_date"`
	Sex       *string          `json:"sex"`
	HeightCm  *decimal.Decimal `json:"height_cm"`
	WeightKg  *decimal.Decimal `json:"weight_kg"`
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": middleware.StatusTokenInvalid, "error": "unauthenticated"})
	}
	return respond(c, http.StatusOK, echo.Map{"user": userOf(u)})
}

// UpdateProfile applies a partial profile change.  The next recommendation
// read recomputes from the new values.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": middleware.StatusTokenInvalid, "error": "unauthenticated"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ch := service.ProfileChange{Nickname: req.Nickname, HeightCm: req.HeightCm, WeightKg: req.WeightKg}
	if req.BirthDate != nil {
		d, err := clock.ParseDate(*req.BirthDate)
		if err != nil {
			return badRequest(c, "birth_date must be YYYY-MM-DD")
		}
		ch.BirthDate = &d
	}
	if req.Sex != nil {
		s := model.Sex(strings.ToLower(strings.TrimSpace(*req.Sex)))
		ch.Sex = &s
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	updated, err := h.Accounts.UpdateProfile(ctx, u.ID, ch)
	if err != nil {
		return fail(c, "update profile", err)
	}
	return respond(c, http.StatusOK, echo.Map{"user": userOf(updated)})
}
