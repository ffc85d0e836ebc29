package ports

import (
	"context"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// CandidateDirectory holds the candidates standing in the election.
type CandidateDirectory interface {
	// Find returns domain.ErrInvalidCandidate for an unknown id.
	Find(ctx context.Context, id string) (*domain.Candidate, error)
	List(ctx context.Context) ([]domain.Candidate, error)
}
