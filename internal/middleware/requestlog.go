package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
)

// column widths of request_logs, in characters
const (
	maxMethodLen  = 10
	maxURLLen     = 2048
	maxMessageLen = 255
)

// RequestLogWriter is satisfied by *repository.RequestLogRepo.
type RequestLogWriter interface {
	Insert(ctx context.Context, l model.RequestLog) error
}

// RequestLog persists one row per request after the handler has run.  A
// failed insert is logged and never affects the response.
func RequestLog(w RequestLogWriter, clk clock.Clock) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			msg := http.StatusText(status)
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
				msg = err.Error()
			}
			req := c.Request()
			entry := model.RequestLog{
				Method:     truncate(req.Method, maxMethodLen),
				URL:        truncate(req.URL.Path, maxURLLen),
				Query:      truncate(req.URL.RawQuery, maxURLLen),
				StatusCode: status,
				Message:    truncate(msg, maxMessageLen),
				CreatedAt:  clk.Now().Truncate(time.Microsecond),
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if ierr := w.Insert(ctx, entry); ierr != nil {
				log.Printf("requestlog: insert failed method=%s url=%s: %v", entry.Method, entry.URL, ierr)
			}
			return err
		}
	}
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
