package ports

import (
	"context"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// BallotRepository persists ballots. The voter id is unique at the storage
// layer: a second Insert for the same voter returns domain.ErrAlreadyVoted
// no matter how the two calls interleave.
type BallotRepository interface {
	Insert(ctx context.Context, ballot *domain.Ballot) error
	FindByVoter(ctx context.Context, voterID string) (*domain.Ballot, error)
	// CountByCandidate aggregates the ballot set; order is unspecified.
	CountByCandidate(ctx context.Context) ([]domain.TallyEntry, error)
}
