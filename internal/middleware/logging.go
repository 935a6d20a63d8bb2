package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// Logging writes one key=value line per request. user_id and role are only
// known once the JWT middleware of the matched group has run, so they are
// read after the handler returns.
func Logging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			userID, _ := UserIDFromContext(c)
			log.Printf("request_id=%s method=%s path=%s route=%s status=%d user_id=%d role=%s latency=%s",
				RequestIDFromContext(c), c.Request().Method, c.Request().URL.Path, c.Path(),
				c.Response().Status, userID, RoleFromContext(c), latency)

			return err
		}
	}
}
