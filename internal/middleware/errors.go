package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/auth"
	"github.com/iliyamo/wellness-api/internal/repository"
)

// Status codes reported in the "status" field of error bodies.
const (
	StatusTokenInvalid   = "TOKEN_INVALID"
	StatusTokenNotFound  = "TOKEN_NOT_FOUND"
	StatusRefreshExpired = "REFRESH_EXPIRED"
	StatusRefreshInvalid = "REFRESH_INVALID"
	StatusUserNotFound   = "USER_NOT_FOUND"
	StatusInternal       = "INTERNAL_ERROR"
)

// AuthFailure classifies errors produced while resolving a session.  ok is
// false for anything that is not an authentication outcome.
func AuthFailure(err error) (code int, status, msg string, ok bool) {
	switch {
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, StatusTokenInvalid, "invalid token", true
	case errors.Is(err, auth.ErrTokenNotFound):
		return http.StatusUnauthorized, StatusTokenNotFound, "token not recognized", true
	case errors.Is(err, auth.ErrRefreshExpired):
		return http.StatusUnauthorized, StatusRefreshExpired, "session expired, log in again", true
	case errors.Is(err, auth.ErrRefreshInvalid):
		return http.StatusUnauthorized, StatusRefreshInvalid, "invalid refresh token", true
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, StatusUserNotFound, "user not found", true
	}
	return 0, "", "", false
}

// WriteAuthError renders err as an error body.  Unclassified errors are
// logged and reported as a generic 500.
func WriteAuthError(c echo.Context, err error) error {
	if code, status, msg, ok := AuthFailure(err); ok {
		return c.JSON(code, echo.Map{"status": status, "error": msg})
	}
	log.Printf("auth: resolve failed request_id=%s: %v", c.Response().Header().Get(echo.HeaderXRequestID), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"status": StatusInternal, "error": "internal error"})
}
