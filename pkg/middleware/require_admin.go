package middleware

import (
	apierrors "github.com/jordanlanch/leadsync/pkg/api/errors"
	"github.com/jordanlanch/leadsync/pkg/auth"
	"github.com/labstack/echo/v4"
)

// RequireAdmin lets only admin tokens through to the resync, backfill and
// integration log routes. It reads the user_id and user_role keys that the
// JWT middleware stores on the context, so it must run after it.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, _ := c.Get("user_id").(string); id == "" {
				return apierrors.UnauthorizedError(c, "missing token subject")
			}
			if role, _ := c.Get("user_role").(string); role != auth.RoleAdmin {
				return apierrors.ForbiddenError(c, "admin role required")
			}
			return next(c)
		}
	}
}
