package middleware

import "github.com/labstack/echo/v4"

// Context keys used to store authentication metadata.
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"
)

// UserIDFromContext returns the authenticated user id set by JWT.
func UserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(ContextKeyUserID).(int64)
	return id, ok && id > 0
}

// RoleFromContext returns the authenticated role, empty when absent.
func RoleFromContext(c echo.Context) string {
	role, _ := c.Get(ContextKeyUserRole).(string)
	return role
}
