package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// Context keys set by the auth and session middleware.
const (
	ctxSessionID = "sid"
	ctxIdentity  = "identity"
)

// ctxSession returns the session id and the live identity injected by the
// Session middleware. Missing values mean the route was wired without it.
func ctxSession(c echo.Context) (string, *domain.Identity, error) {
	sid, _ := c.Get(ctxSessionID).(string)
	identity, _ := c.Get(ctxIdentity).(*domain.Identity)
	if sid == "" || identity == nil {
		return "", nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return sid, identity, nil
}

// bindAndValidate decodes the body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
