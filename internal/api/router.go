package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/unionportal/ballot-system/docs"
	"github.com/unionportal/ballot-system/internal/api/handler"
	"github.com/unionportal/ballot-system/internal/api/middleware"
	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

// Tokens signs tokens at login and verifies them on every request.
type Tokens interface {
	ports.TokenIssuer
	ports.TokenVerifier
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	OTP        ports.OTPService
	Sessions   ports.SessionRegistry
	Tokens     Tokens
	Ballots    ports.BallotService
	Identities ports.IdentityService
	CodeTTL    time.Duration
	Pingers    map[string]handler.Pinger
	Log        zerolog.Logger

	// Registerer receives the HTTP metrics; the default registry when nil.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "ballot",
		Subsystem:  "http",
		Registerer: d.Registerer,
	}))

	authHandler := handler.NewAuthHandler(d.OTP, d.Sessions, d.Tokens, d.CodeTTL, d.Log)
	ballotHandler := handler.NewBallotHandler(d.Ballots)
	identityHandler := handler.NewIdentityHandler(d.Identities)
	healthHandler := handler.NewHealthHandler(d.Pingers)

	authenticated := []echo.MiddlewareFunc{middleware.Auth(d.Tokens), middleware.Session(d.Sessions)}

	// --- Auth routes ---
	e.POST("/auth/otp", authHandler.RequestCode)
	e.POST("/auth/verify", authHandler.VerifyCode)
	e.GET("/auth/session", authHandler.Session, authenticated...)
	e.POST("/auth/logout", authHandler.Logout, authenticated...)

	// --- Ballot routes ---
	v1 := e.Group("/v1", authenticated...)
	v1.POST("/ballots", ballotHandler.Cast)
	v1.GET("/ballots/me", ballotHandler.Mine)
	v1.GET("/results", ballotHandler.Results)
	v1.GET("/candidates", ballotHandler.Candidates)
	v1.PATCH("/identities/:id/approval", identityHandler.SetApproval, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes, metrics, docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
