package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

func newAuthHandler(otp *stubOTPService, sessions *stubSessions, tokens stubTokens) *AuthHandler {
	return NewAuthHandler(otp, sessions, tokens, domain.CodeTTL, zerolog.Nop())
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_RequestCode_Success(t *testing.T) {
	e := newTestEcho()
	var got string
	otp := &stubOTPService{issueFn: func(_ context.Context, phone string) error {
		got = phone
		return nil
	}}
	h := newAuthHandler(otp, &stubSessions{}, stubTokens{})

	c, rec := postJSON(e, "/auth/otp", `{"phone":"09121234567"}`)
	if err := h.RequestCode(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != "09121234567" {
		t.Fatalf("unexpected phone %q", got)
	}
	var resp requestCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ExpiresIn != int((5 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in %d", resp.ExpiresIn)
	}
}

func TestAuthHandler_RequestCode_InvalidPhone(t *testing.T) {
	e := newTestEcho()
	otp := &stubOTPService{issueFn: func(context.Context, string) error {
		t.Fatalf("should not be called")
		return nil
	}}
	h := newAuthHandler(otp, &stubSessions{}, stubTokens{})

	for _, body := range []string{`{"phone":"12345"}`, `{"phone":"0912123456a"}`, `{}`, `not-json`} {
		c, _ := postJSON(e, "/auth/otp", body)
		err := h.RequestCode(c)

		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %v", body, err)
		}
	}
}

func TestAuthHandler_RequestCode_DeliveryFailed(t *testing.T) {
	e := newTestEcho()
	otp := &stubOTPService{issueFn: func(context.Context, string) error { return domain.ErrDeliveryFailed }}
	h := newAuthHandler(otp, &stubSessions{}, stubTokens{})

	c, _ := postJSON(e, "/auth/otp", `{"phone":"09121234567"}`)
	if err := h.RequestCode(c); !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestAuthHandler_VerifyCode_Success(t *testing.T) {
	e := newTestEcho()
	identity := &domain.Identity{ID: "identity-1", PhoneNumber: "09121234567", Role: domain.RoleMember}
	otp := &stubOTPService{redeemFn: func(ctx context.Context, phone, code string, fn func(context.Context) error) error {
		if phone != "09121234567" || code != "4821" {
			t.Fatalf("unexpected args: %s %s", phone, code)
		}
		return fn(ctx)
	}}
	sessions := &stubSessions{openFn: func(context.Context, string) (string, *domain.Identity, error) {
		return "sid-1", identity, nil
	}}
	h := newAuthHandler(otp, sessions, stubTokens{})

	c, rec := postJSON(e, "/auth/verify", `{"phone":"09121234567","code":"4821"}`)
	if err := h.VerifyCode(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token-sid-1" {
		t.Fatalf("unexpected token %v", resp["token"])
	}
	got, ok := resp["identity"].(map[string]any)
	if !ok || got["id"] != "identity-1" || got["role"] != "member" {
		t.Fatalf("unexpected identity payload: %+v", resp["identity"])
	}
}

func TestAuthHandler_VerifyCode_Rejected(t *testing.T) {
	e := newTestEcho()
	otp := &stubOTPService{redeemFn: func(context.Context, string, string, func(context.Context) error) error {
		return domain.ErrCodeInvalidOrExpired
	}}
	sessions := &stubSessions{openFn: func(context.Context, string) (string, *domain.Identity, error) {
		t.Fatalf("no session should be opened")
		return "", nil, nil
	}}
	h := newAuthHandler(otp, sessions, stubTokens{})

	c, _ := postJSON(e, "/auth/verify", `{"phone":"09121234567","code":"0000"}`)
	if err := h.VerifyCode(c); !errors.Is(err, domain.ErrCodeInvalidOrExpired) {
		t.Fatalf("expected ErrCodeInvalidOrExpired, got %v", err)
	}
}

func TestAuthHandler_VerifyCode_TokenFailureClosesSession(t *testing.T) {
	e := newTestEcho()
	var callbackErr error
	otp := &stubOTPService{redeemFn: func(ctx context.Context, _, _ string, fn func(context.Context) error) error {
		callbackErr = fn(ctx)
		return callbackErr
	}}
	sessions := &stubSessions{openFn: func(context.Context, string) (string, *domain.Identity, error) {
		return "sid-1", &domain.Identity{ID: "identity-1", Role: domain.RoleMember}, nil
	}}
	h := newAuthHandler(otp, sessions, stubTokens{err: errors.New("bad key")})

	c, _ := postJSON(e, "/auth/verify", `{"phone":"09121234567","code":"4821"}`)
	err := h.VerifyCode(c)
	if !errors.Is(err, domain.ErrSessionEstablishFailed) {
		t.Fatalf("expected ErrSessionEstablishFailed, got %v", err)
	}
	if len(sessions.closed) != 1 || sessions.closed[0] != "sid-1" {
		t.Fatalf("orphan session should be closed, got %v", sessions.closed)
	}
	if callbackErr == nil {
		t.Fatalf("the redeem callback must fail so the code is released")
	}
}

func TestAuthHandler_VerifyCode_MalformedCode(t *testing.T) {
	e := newTestEcho()
	h := newAuthHandler(&stubOTPService{}, &stubSessions{}, stubTokens{})

	for _, body := range []string{`{"phone":"09121234567","code":"48"}`, `{"phone":"09121234567","code":"48a1"}`} {
		c, _ := postJSON(e, "/auth/verify", body)
		var he *echo.HTTPError
		if err := h.VerifyCode(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %v", body, err)
		}
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newTestEcho()
	sessions := &stubSessions{}
	h := newAuthHandler(&stubOTPService{}, sessions, stubTokens{})

	c, rec := postJSON(e, "/auth/logout", "")
	withSession(c, "sid-1", &domain.Identity{ID: "identity-1", Role: domain.RoleMember})

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(sessions.closed) != 1 || sessions.closed[0] != "sid-1" {
		t.Fatalf("expected sid-1 to be closed, got %v", sessions.closed)
	}
}

func TestAuthHandler_Session_RequiresMiddleware(t *testing.T) {
	e := newTestEcho()
	h := newAuthHandler(&stubOTPService{}, &stubSessions{}, stubTokens{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/session", nil), httptest.NewRecorder())
	var he *echo.HTTPError
	if err := h.Session(c); !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
