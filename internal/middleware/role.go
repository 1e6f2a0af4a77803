package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole lets through callers whose token carries one of roles.
// Guests get 401 so clients know to log in; other roles get 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login required", "request_id": RequestID(c)})
			}
			if _, ok := allowed[Role(c)]; !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "request_id": RequestID(c)})
			}
			return next(c)
		}
	}
}
