package ports

import (
	"context"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// OTPService issues and verifies one-time codes.
type OTPService interface {
	Issue(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) error
	// Redeem verifies the code and runs fn; if fn fails the code is
	// released again so nothing is left half-applied.
	Redeem(ctx context.Context, phone, code string, fn func(context.Context) error) error
}

// SessionRegistry tracks established sessions by session id.
type SessionRegistry interface {
	Open(ctx context.Context, phone string) (string, *domain.Identity, error)
	Lookup(ctx context.Context, sessionID string) (*domain.Identity, error)
	Close(ctx context.Context, sessionID string) error
	IsActive(ctx context.Context, voterID string) bool
}

// BallotService is the single-ballot casting protocol.
type BallotService interface {
	Cast(ctx context.Context, voterID, candidateID string) (*domain.Ballot, error)
	HasVoted(ctx context.Context, voterID string) (bool, error)
	BallotOf(ctx context.Context, voterID string) (*domain.Ballot, error)
	Results(ctx context.Context) (domain.TallyView, error)
	Candidates(ctx context.Context) ([]domain.Candidate, error)
}

// IdentityService manages identity approval.
type IdentityService interface {
	SetApproval(ctx context.Context, actorRole domain.Role, id string, approved bool) (*domain.Identity, error)
}

// SessionClaims are the verified contents of a bearer token.
type SessionClaims struct {
	SessionID string
	Subject   string
	Role      domain.Role
}

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*SessionClaims, error)
}

// TokenIssuer signs bearer tokens for established sessions.
type TokenIssuer interface {
	Issue(sessionID string, identity *domain.Identity) (string, error)
}
