package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/auth"
)

// Headers carrying the refresh token in and a rotated access token out.
const (
	HeaderRefreshToken  = "X-Refresh-Token"
	HeaderAccessToken   = "X-Access-Token"
	HeaderAccessExpires = "X-Access-Expires"
)

// SessionResolver is satisfied by *auth.Resolver.
type SessionResolver interface {
	Resolve(ctx context.Context, p auth.Presented) (auth.Session, error)
}

// Session authenticates the bearer token against the credential store.  An
// expired access token is rotated when the refresh token is still good; the
// replacement is returned in response headers and left in the context for
// handlers to echo in the body.
func Session(r SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"status": StatusTokenInvalid, "error": "missing bearer token"})
			}
			presented := auth.Presented{
				Access:  strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")),
				Refresh: strings.TrimSpace(c.Request().Header.Get(HeaderRefreshToken)),
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			s, err := r.Resolve(ctx, presented)
			cancel()
			if err != nil {
				return WriteAuthError(c, err)
			}

			setIdentity(c, s)
			if s.Rotated != nil {
				h := c.Response().Header()
				h.Set(HeaderAccessToken, s.Rotated.Token)
				h.Set(HeaderAccessExpires, s.Rotated.ExpiresAt.UTC().Format(time.RFC3339))
			}
			return next(c)
		}
	}
}
