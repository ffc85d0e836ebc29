// @title           Union Portal Ballot API
// @version         1.0
// @description     One-time-code login, voter sessions and single-ballot voting.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/api"
	"github.com/unionportal/ballot-system/internal/api/handler"
	"github.com/unionportal/ballot-system/internal/api/metrics"
	"github.com/unionportal/ballot-system/internal/core/ports"
	"github.com/unionportal/ballot-system/internal/core/service"
	"github.com/unionportal/ballot-system/internal/infrastructure/config"
	"github.com/unionportal/ballot-system/internal/infrastructure/db"
	"github.com/unionportal/ballot-system/internal/infrastructure/db/memory"
	redisdb "github.com/unionportal/ballot-system/internal/infrastructure/db/redis"
	"github.com/unionportal/ballot-system/internal/infrastructure/queue"
	"github.com/unionportal/ballot-system/internal/infrastructure/slot/sqlite"
	"github.com/unionportal/ballot-system/internal/infrastructure/sms"
	"github.com/unionportal/ballot-system/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: "ballot-api"})
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "ballot-api",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET unset, using an insecure development secret")
		cfg.JWTSecret = "development-only-secret"
	}

	stores, err := db.Open(ctx, cfg, logger.Component("store"))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing store")
		}
	}()
	log.Info().Str("driver", stores.Driver).Msg("store ready")

	slots, err := sqlite.Open(cfg.SessionDB)
	if err != nil {
		return err
	}
	defer slots.Close()

	pingers := map[string]handler.Pinger{
		"store":    stores.Ping,
		"sessions": slots.Ping,
	}

	var cooldown ports.Cooldown = memory.NewCooldown()
	if cfg.Redis.Addr != "" {
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		cooldown = redisdb.NewCooldown(client)
		pingers["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	var sender ports.TextSender
	if cfg.SMS.GatewayURL != "" {
		sender = sms.NewGateway(sms.GatewayConfig{
			URL:      cfg.SMS.GatewayURL,
			From:     cfg.SMS.From,
			Username: cfg.SMS.Username,
			Password: cfg.SMS.Password,
			Domain:   cfg.SMS.Domain,
		})
	} else {
		log.Warn().Msg("SMS_GATEWAY_URL unset, messages are logged instead of sent")
		sender = sms.NewConsole(logger.Component("sms"), cfg.IsDevelopment())
	}

	otp := service.NewOTPService(stores.Codes, sender, cooldown, service.OTPConfig{
		TTL:            cfg.OTP.TTL,
		ResendCooldown: cfg.OTP.ResendCooldown,
		Signature:      cfg.OTP.Signature,
	}, logger.Component("otp"))

	sessions := service.NewSessionRegistry(stores.Identities, slots, cfg.AdminPhone, logger.Component("session")).
		WithTTL(cfg.TokenTTL)
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	identities := service.NewIdentityService(stores.Identities, sessions, cfg.AdminPhone, logger.Component("identity"))

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var notifier ports.Notifier
	if cfg.Notify.VoteConfirmations {
		dispatcher := queue.NewDispatcher(cfg.Notify.Workers, sender, cfg.OTP.Signature, logger.Component("notify"))
		dispatcher.Start(workerCtx)
		defer func() {
			cancelWorkers()
			dispatcher.Wait()
		}()
		notifier = dispatcher
	}
	ballots := service.NewBallotService(stores.Ballots, stores.Identities, memory.NewCandidates(cfg.Candidates), sessions, notifier, logger.Component("ballot"))

	go purgeLoop(workerCtx, otp, sessions, cfg.OTP.PurgeInterval, logger.Component("purge"))

	e := api.NewRouter(api.Deps{
		OTP:        otp,
		Sessions:   sessions,
		Tokens:     tokens,
		Ballots:    ballots,
		Identities: identities,
		CodeTTL:    cfg.OTP.TTL,
		Pingers:    pingers,
		Log:        log,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}

// purgeLoop removes consumed and expired codes and expired sessions until
// ctx is cancelled.
func purgeLoop(ctx context.Context, otp *service.OTPService, sessions *service.SessionRegistry, every time.Duration, log zerolog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := otp.PurgeExpired(ctx); err != nil {
				log.Error().Err(err).Msg("code purge failed")
			} else {
				metrics.CodesPurgedTotal.Add(float64(n))
				if n > 0 {
					log.Debug().Int64("removed", n).Msg("purged codes")
				}
			}
			if n, err := sessions.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("session sweep failed")
			} else {
				metrics.SessionsSweptTotal.Add(float64(n))
				if n > 0 {
					log.Debug().Int64("removed", n).Msg("swept sessions")
				}
			}
		}
	}
}
