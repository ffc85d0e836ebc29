package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// RBAC admits requests whose role is one of allowed. The role comes from the
// live identity when Session ran, otherwise from the token claims.
func RBAC(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := requestRole(c)
			for _, r := range allowed {
				if role == r {
					return next(c)
				}
			}
			return domain.ErrForbidden
		}
	}
}

func requestRole(c echo.Context) domain.Role {
	if identity, ok := c.Get(ctxIdentity).(*domain.Identity); ok && identity != nil {
		return identity.Role
	}
	role, _ := c.Get(ctxRole).(string)
	return domain.Role(role)
}
