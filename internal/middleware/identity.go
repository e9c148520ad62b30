package middleware

// identity.go holds the context keys set by Session and the accessors
// handlers use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/auth"
	"github.com/iliyamo/wellness-api/internal/model"
)

const (
	ctxUser    = "user"
	ctxUserID  = "user_id"
	ctxRotated = "rotated_access"
)

// CurrentUser returns the user resolved by Session.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}

// RotatedAccess returns the access token minted for this request, if the
// presented one had expired.
func RotatedAccess(c echo.Context) (auth.IssuedToken, bool) {
	t, ok := c.Get(ctxRotated).(auth.IssuedToken)
	return t, ok
}

func setIdentity(c echo.Context, s auth.Session) {
	c.Set(ctxUser, s.User)
	c.Set(ctxUserID, strconv.FormatUint(s.User.ID, 10))
	if s.Rotated != nil {
		c.Set(ctxRotated, *s.Rotated)
	}
}

// userID is the string form used in rate-limit keys; "guest" when the
// request is unauthenticated.
func userID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(string); ok && v != "" {
		return v
	}
	return "guest"
}
