package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/wellness-api/internal/auth"
	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/middleware"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/service"
)

// AccountService is the subset of *service.AccountService the handlers use.
type AccountService interface {
	Register(ctx context.Context, r service.Registration) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	UpdateProfile(ctx context.Context, userID uint64, ch service.ProfileChange) (model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Accounts AccountService
	Sessions middleware.SessionResolver
}

func NewAuthHandler(a AccountService, s middleware.SessionResolver) *AuthHandler {
	return &AuthHandler{Accounts: a, Sessions: s}
}

// ----- DTOs -----

type registerReq struct {
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Nickname  string          `json:"nickname"`
	BirthDate string          `json:"birth_date"` // YYYY-MM-DD
	Sex       string          `json:"sex"`        // male | female
	HeightCm  decimal.Decimal `json:"height_cm"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshAccessReq struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func authRespOf(r service.AuthResult) authResp {
	return authResp{User: userOf(r.User), Access: tokenOf(r.Pair.Access), Refresh: tokenOf(r.Pair.Refresh)}
}

// Register: create the user with its profile and return a token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}
	birth, err := clock.ParseDate(req.BirthDate)
	if err != nil {
		return badRequest(c, "birth_date must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Accounts.Register(ctx, service.Registration{
		Email: req.Email, Password: req.Password, Nickname: req.Nickname, BirthDate: birth,
		Sex: model.Sex(strings.ToLower(strings.TrimSpace(req.Sex))), HeightCm: req.HeightCm, WeightKg: req.WeightKg,
	})
	if err != nil {
		return fail(c, "register", err)
	}
	return c.JSON(http.StatusCreated, authRespOf(res))
}

// Login: verify the password and return a new pair.  Any earlier pair stops
// working.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, "login", err)
	}
	return c.JSON(http.StatusOK, authRespOf(res))
}

// RefreshAccess resolves the body pair the same way the Session middleware
// resolves headers.  An expired access token is replaced; the refresh token
// is never rotated here.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshAccessReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.AccessToken == "" || req.RefreshToken == "" {
		return badRequest(c, "access_token and refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.Resolve(ctx, auth.Presented{Access: req.AccessToken, Refresh: req.RefreshToken})
	if err != nil {
		return fail(c, "refresh access", err)
	}
	body := echo.Map{"user": userOf(s.User), "rotated": s.Rotated != nil}
	if s.Rotated != nil {
		c.Response().Header().Set(middleware.HeaderAccessToken, s.Rotated.Token)
		c.Response().Header().Set(middleware.HeaderAccessExpires, s.Rotated.ExpiresAt.UTC().Format(time.RFC3339))
		body["access"] = tokenOf(*s.Rotated)
	}
	return c.JSON(http.StatusOK, body)
}
