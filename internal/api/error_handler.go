package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errorMapping ties a domain error to its response. An empty message
// echoes err.Error(). retryAfter is sent as a Retry-After hint in seconds.
type errorMapping struct {
	target     error
	status     int
	message    string
	level      zerolog.Level
	retryAfter int
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{target: domain.ErrAlreadyVoted, status: http.StatusConflict, message: "ballot already cast", level: zerolog.InfoLevel},
	{target: domain.ErrCodeInvalidOrExpired, status: http.StatusUnauthorized, message: "code is invalid or expired", level: zerolog.InfoLevel},
	{target: domain.ErrNoSession, status: http.StatusUnauthorized, message: "no active session", level: zerolog.DebugLevel},
	{target: domain.ErrForbidden, status: http.StatusForbidden, message: "access forbidden", level: zerolog.InfoLevel},
	{target: domain.ErrIdentityNotFound, status: http.StatusNotFound, message: "identity not found", level: zerolog.DebugLevel},
	{target: domain.ErrResendCooldown, status: http.StatusTooManyRequests, message: "please wait before requesting another code", level: zerolog.DebugLevel, retryAfter: 120},
	{target: domain.ErrInvalidPhoneNumber, status: http.StatusBadRequest, level: zerolog.DebugLevel},
	{target: domain.ErrInvalidCandidate, status: http.StatusBadRequest, level: zerolog.DebugLevel},
	{target: domain.ErrDeliveryFailed, status: http.StatusBadGateway, message: "verification code could not be delivered", level: zerolog.WarnLevel},
	{target: domain.ErrSessionEstablishFailed, status: http.StatusServiceUnavailable, message: "service temporarily unavailable", level: zerolog.ErrorLevel, retryAfter: 5},
	{target: domain.ErrStoreUnavailable, status: http.StatusServiceUnavailable, message: "service temporarily unavailable", level: zerolog.ErrorLevel, retryAfter: 5},
}

// NewHTTPErrorHandler renders every error as {"error": "<message>"}.
// Domain errors get fixed statuses; anything unknown is logged and hidden
// behind a 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)})
			return
		}

		m, ok := lookupMapping(err)
		if !ok {
			m = errorMapping{status: http.StatusInternalServerError, message: "internal server error", level: zerolog.ErrorLevel}
		}

		log.WithLevel(m.level).
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Int("status", m.status).
			Msg("request failed")

		if m.retryAfter > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(m.retryAfter))
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		_ = c.JSON(m.status, errorResponse{Error: msg})
	}
}

func lookupMapping(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}
