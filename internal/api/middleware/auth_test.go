package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/service"
)

const testSID = "3f1c0d2e-0b7a-4a53-9d57-0f3f8e2c5b10"

func runAuth(t *testing.T, header string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Auth(service.NewTokenIssuer("secret", time.Hour))(next)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func mustNotRun(t *testing.T) echo.HandlerFunc {
	return func(echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	issuer := service.NewTokenIssuer("secret", time.Hour)
	signed, err := issuer.Issue(testSID, &domain.Identity{ID: "identity-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	called := false
	rec := runAuth(t, "Bearer "+signed, func(c echo.Context) error {
		called = true
		if c.Get("sid") != testSID {
			t.Fatalf("sid not set")
		}
		if c.Get("sub") != "identity-1" {
			t.Fatalf("sub not set")
		}
		if c.Get("role") != "admin" {
			t.Fatalf("role not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	signWith := func(secret string, claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return raw
	}

	tests := map[string]string{
		"missing header":        "",
		"wrong scheme":          "Token abc",
		"empty bearer":          "Bearer ",
		"malformed token":       "Bearer not-a-token",
		"missing session claim": "Bearer " + signWith("secret", jwt.MapClaims{"role": "member", "exp": exp}),
		"wrong secret":          "Bearer " + signWith("other", jwt.MapClaims{"sid": "s", "sub": "i", "role": "admin", "exp": exp}),
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			if rec := runAuth(t, header, mustNotRun(t)); rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}
