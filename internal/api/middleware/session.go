package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// SessionLookup resolves a session id to its live identity.
type SessionLookup interface {
	Lookup(ctx context.Context, sessionID string) (*domain.Identity, error)
}

// Session rejects tokens whose session was terminated and injects the
// session's current identity. Must run after Auth.
func Session(sessions SessionLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, _ := c.Get(ctxSessionID).(string)
			sub, _ := c.Get(ctxSubject).(string)
			if sid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}

			identity, err := sessions.Lookup(c.Request().Context(), sid)
			if err != nil {
				return err
			}
			if identity.ID != sub {
				return domain.ErrNoSession
			}

			c.Set(ctxIdentity, identity)
			c.Set(ctxRole, string(identity.Role))
			return next(c)
		}
	}
}
