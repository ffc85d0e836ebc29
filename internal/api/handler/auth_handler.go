package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/api/metrics"
	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

// AuthHandler serves phone-number login: code request, code verification,
// session inspection and logout.
type AuthHandler struct {
	otp      ports.OTPService
	sessions ports.SessionRegistry
	tokens   ports.TokenIssuer
	codeTTL  time.Duration
	log      zerolog.Logger
}

func NewAuthHandler(otp ports.OTPService, sessions ports.SessionRegistry, tokens ports.TokenIssuer, codeTTL time.Duration, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{otp: otp, sessions: sessions, tokens: tokens, codeTTL: codeTTL, log: log}
}

// RequestCode sends a verification code to a phone number.
//
// @Summary      Request a verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      requestCodeRequest  true  "Phone number"
// @Success      200   {object}  requestCodeResponse
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /auth/otp [post]
func (h *AuthHandler) RequestCode(c echo.Context) error {
	var req requestCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.CodesIssuedTotal.WithLabelValues("invalid").Inc()
		return err
	}

	if err := h.otp.Issue(c.Request().Context(), req.Phone); err != nil {
		metrics.CodesIssuedTotal.WithLabelValues(issueResult(err)).Inc()
		return err
	}

	metrics.CodesIssuedTotal.WithLabelValues("sent").Inc()
	return c.JSON(http.StatusOK, requestCodeResponse{
		Message:   "verification code sent",
		ExpiresIn: int(h.codeTTL.Seconds()),
	})
}

// VerifyCode redeems a code and opens a session. If the session cannot be
// established the code stays usable.
//
// @Summary      Verify a code and sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyCodeRequest  true  "Phone number and code"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/verify [post]
func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req verifyCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var resp sessionResponse
	err := h.otp.Redeem(c.Request().Context(), req.Phone, req.Code, func(ctx context.Context) error {
		sid, identity, err := h.sessions.Open(ctx, req.Phone)
		if err != nil {
			return err
		}
		token, err := h.tokens.Issue(sid, identity)
		if err != nil {
			if closeErr := h.sessions.Close(ctx, sid); closeErr != nil {
				h.log.Warn().Err(closeErr).Msg("failed to close session after token error")
			}
			return fmt.Errorf("%w: sign token: %w", domain.ErrSessionEstablishFailed, err)
		}
		resp = sessionResponse{Token: token, Identity: identity}
		return nil
	})
	if err != nil {
		metrics.CodesVerifiedTotal.WithLabelValues(verifyResult(err)).Inc()
		return err
	}

	metrics.CodesVerifiedTotal.WithLabelValues("ok").Inc()
	metrics.SessionsOpenedTotal.WithLabelValues(string(resp.Identity.Role)).Inc()
	return c.JSON(http.StatusOK, resp)
}

// Session returns the identity of the current session.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	_, identity, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{Identity: identity})
}

// Logout terminates the current session. Repeating it is harmless.
//
// @Summary      Sign out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sid, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Close(c.Request().Context(), sid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func issueResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, domain.ErrResendCooldown):
		return "cooldown"
	case errors.Is(err, domain.ErrInvalidPhoneNumber):
		return "invalid"
	default:
		return "error"
	}
}

func verifyResult(err error) string {
	if errors.Is(err, domain.ErrCodeInvalidOrExpired) {
		return "rejected"
	}
	return "error"
}
