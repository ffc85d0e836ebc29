package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

type stubOTPService struct {
	issueFn  func(ctx context.Context, phone string) error
	redeemFn func(ctx context.Context, phone, code string, fn func(context.Context) error) error
}

func (s *stubOTPService) Issue(ctx context.Context, phone string) error { return s.issueFn(ctx, phone) }

func (s *stubOTPService) Verify(ctx context.Context, phone, code string) error {
	return s.redeemFn(ctx, phone, code, func(context.Context) error { return nil })
}

func (s *stubOTPService) Redeem(ctx context.Context, phone, code string, fn func(context.Context) error) error {
	return s.redeemFn(ctx, phone, code, fn)
}

type stubSessions struct {
	openFn  func(ctx context.Context, phone string) (string, *domain.Identity, error)
	closed  []string
	closeFn func(ctx context.Context, sid string) error
}

func (s *stubSessions) Open(ctx context.Context, phone string) (string, *domain.Identity, error) {
	return s.openFn(ctx, phone)
}

func (s *stubSessions) Lookup(context.Context, string) (*domain.Identity, error) {
	return nil, domain.ErrNoSession
}

func (s *stubSessions) Close(ctx context.Context, sid string) error {
	s.closed = append(s.closed, sid)
	if s.closeFn != nil {
		return s.closeFn(ctx, sid)
	}
	return nil
}

func (s *stubSessions) IsActive(context.Context, string) bool { return false }

type stubTokens struct {
	err error
}

func (s stubTokens) Issue(sid string, identity *domain.Identity) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-" + sid, nil
}

type stubBallotService struct {
	castFn     func(ctx context.Context, voterID, candidateID string) (*domain.Ballot, error)
	ballotOfFn func(ctx context.Context, voterID string) (*domain.Ballot, error)
	resultsFn  func(ctx context.Context) (domain.TallyView, error)
	listFn     func(ctx context.Context) ([]domain.Candidate, error)
}

func (s *stubBallotService) Cast(ctx context.Context, voterID, candidateID string) (*domain.Ballot, error) {
	return s.castFn(ctx, voterID, candidateID)
}

func (s *stubBallotService) HasVoted(ctx context.Context, voterID string) (bool, error) {
	_, err := s.ballotOfFn(ctx, voterID)
	return err == nil, nil
}

func (s *stubBallotService) BallotOf(ctx context.Context, voterID string) (*domain.Ballot, error) {
	return s.ballotOfFn(ctx, voterID)
}

func (s *stubBallotService) Results(ctx context.Context) (domain.TallyView, error) {
	return s.resultsFn(ctx)
}

func (s *stubBallotService) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	return s.listFn(ctx)
}

type stubIdentityService struct {
	setFn func(ctx context.Context, actorRole domain.Role, id string, approved bool) (*domain.Identity, error)
}

func (s *stubIdentityService) SetApproval(ctx context.Context, actorRole domain.Role, id string, approved bool) (*domain.Identity, error) {
	return s.setFn(ctx, actorRole, id, approved)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// withSession mimics the Session middleware.
func withSession(c echo.Context, sid string, identity *domain.Identity) {
	c.Set("sid", sid)
	c.Set("identity", identity)
	c.Set("role", string(identity.Role))
}
