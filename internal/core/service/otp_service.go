package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

const (
	codeMin = 1000
	codeMax = 9999
)

// CodeGenerator returns a fresh 4-digit code.
type CodeGenerator func() (string, error)

// OTPConfig tunes code issuance.
type OTPConfig struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	// Signature is appended to every code message.
	Signature string
	// HashCost is the bcrypt cost; bcrypt.DefaultCost when zero.
	HashCost int
}

// OTPService issues and verifies one-time codes keyed by phone number.
type OTPService struct {
	codes    ports.CodeRepository
	sender   ports.TextSender
	cooldown ports.Cooldown
	cfg      OTPConfig
	generate CodeGenerator
	now      func() time.Time
	log      zerolog.Logger
}

// NewOTPService wires an OTPService. cooldown may be nil.
func NewOTPService(codes ports.CodeRepository, sender ports.TextSender, cooldown ports.Cooldown, cfg OTPConfig, log zerolog.Logger) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.CodeTTL
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &OTPService{
		codes:    codes,
		sender:   sender,
		cooldown: cooldown,
		cfg:      cfg,
		generate: randomCode,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// WithGenerator replaces the code generator. Used by tests.
func (s *OTPService) WithGenerator(g CodeGenerator) *OTPService {
	s.generate = g
	return s
}

// WithClock replaces the time source. Used by tests.
func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	s.now = now
	return s
}

// Issue generates a code for phone, stores its hash as the only active code
// for that number and delivers it. A failed delivery leaves no active code.
func (s *OTPService) Issue(ctx context.Context, phone string) error {
	if !domain.ValidPhoneNumber(phone) {
		return domain.ErrInvalidPhoneNumber
	}

	if s.cooldown != nil && s.cfg.ResendCooldown > 0 {
		ok, err := s.cooldown.Acquire(ctx, phone, s.cfg.ResendCooldown)
		if err != nil {
			// Throttling is best effort.
			s.log.Warn().Err(err).Str("phone", domain.MaskPhone(phone)).Msg("cooldown check failed, issuing anyway")
		} else if !ok {
			return domain.ErrResendCooldown
		}
	}

	digits, err := s.generate()
	if err != nil {
		s.releaseCooldown(ctx, phone)
		return fmt.Errorf("issue code: generate: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(digits), s.cfg.HashCost)
	if err != nil {
		s.releaseCooldown(ctx, phone)
		return fmt.Errorf("issue code: hash: %w", err)
	}

	now := s.now()
	code := &domain.VerificationCode{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		CodeHash:    string(hash),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.cfg.TTL),
	}
	if err := s.codes.Replace(ctx, code); err != nil {
		s.releaseCooldown(ctx, phone)
		return storeErr("issue code", err)
	}

	if err := s.sender.SendText(ctx, phone, s.message(digits)); err != nil {
		if delErr := s.codes.Delete(ctx, code.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("phone", domain.MaskPhone(phone)).Msg("failed to roll back undelivered code")
		}
		s.releaseCooldown(ctx, phone)
		s.log.Warn().Err(err).Str("phone", domain.MaskPhone(phone)).Msg("code delivery failed")
		return fmt.Errorf("issue code: %w: %w", domain.ErrDeliveryFailed, err)
	}

	s.log.Info().Str("phone", domain.MaskPhone(phone)).Time("expires_at", code.ExpiresAt).Msg("verification code issued")
	return nil
}

// Verify consumes the active code for phone if it matches. A correct code
// can be redeemed exactly once.
func (s *OTPService) Verify(ctx context.Context, phone, code string) error {
	_, err := s.consume(ctx, phone, code)
	return err
}

// Redeem verifies the code, then runs fn. When fn fails the consumption is
// released so the number is not left with a spent code and no session.
func (s *OTPService) Redeem(ctx context.Context, phone, code string, fn func(context.Context) error) error {
	consumed, err := s.consume(ctx, phone, code)
	if err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		if relErr := s.codes.Release(ctx, consumed.ID); relErr != nil {
			s.log.Error().Err(relErr).Str("phone", domain.MaskPhone(phone)).Msg("failed to release code after redeem failure")
		}
		return err
	}
	return nil
}

// PurgeExpired removes spent and expired codes.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.codes.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, storeErr("purge codes", err)
	}
	return n, nil
}

func (s *OTPService) consume(ctx context.Context, phone, code string) (*domain.VerificationCode, error) {
	if !domain.ValidCodeFormat(code) {
		return nil, domain.ErrCodeInvalidOrExpired
	}
	current, err := s.codes.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrCodeInvalidOrExpired
		}
		return nil, storeErr("verify code", err)
	}

	if !current.Active(s.now()) {
		return nil, domain.ErrCodeInvalidOrExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(current.CodeHash), []byte(code)) != nil {
		return nil, domain.ErrCodeInvalidOrExpired
	}

	ok, err := s.codes.Consume(ctx, current.ID)
	if err != nil {
		return nil, storeErr("consume code", err)
	}
	if !ok {
		// Lost the race against another submission or a newer issuance.
		return nil, domain.ErrCodeInvalidOrExpired
	}

	s.log.Info().Str("phone", domain.MaskPhone(phone)).Msg("verification code consumed")
	return current, nil
}

func (s *OTPService) releaseCooldown(ctx context.Context, phone string) {
	if s.cooldown == nil || s.cfg.ResendCooldown <= 0 {
		return
	}
	if err := s.cooldown.Release(ctx, phone); err != nil {
		s.log.Warn().Err(err).Str("phone", domain.MaskPhone(phone)).Msg("failed to release cooldown")
	}
}

func (s *OTPService) message(code string) string {
	body := "Your verification code: " + code
	if s.cfg.Signature != "" {
		body += "\n" + s.cfg.Signature
	}
	return body
}

// randomCode draws uniformly from [codeMin, codeMax].
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// storeErr tags an infrastructure failure as domain.ErrStoreUnavailable
// while keeping the cause in the chain.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
