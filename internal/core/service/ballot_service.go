package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

// SessionChecker reports whether a voter currently holds a session.
type SessionChecker interface {
	IsActive(ctx context.Context, voterID string) bool
}

// BallotService enforces one ballot per voter and aggregates results.
type BallotService struct {
	ballots    ports.BallotRepository
	identities ports.IdentityRepository
	candidates ports.CandidateDirectory
	sessions   SessionChecker
	notifier   ports.Notifier
	now        func() time.Time
	log        zerolog.Logger
}

// NewBallotService wires a BallotService. notifier may be nil.
func NewBallotService(
	ballots ports.BallotRepository,
	identities ports.IdentityRepository,
	candidates ports.CandidateDirectory,
	sessions SessionChecker,
	notifier ports.Notifier,
	log zerolog.Logger,
) *BallotService {
	return &BallotService{
		ballots:    ballots,
		identities: identities,
		candidates: candidates,
		sessions:   sessions,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// Cast records the voter's single ballot. The pre-check only saves a
// round-trip; the store's uniqueness on voter id is what rejects a second
// ballot when two casts race.
func (s *BallotService) Cast(ctx context.Context, voterID, candidateID string) (*domain.Ballot, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, domain.ErrInvalidCandidate
	}
	if voterID == "" || !s.sessions.IsActive(ctx, voterID) {
		return nil, domain.ErrNoSession
	}
	candidate, err := s.candidates.Find(ctx, candidateID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCandidate) {
			return nil, err
		}
		return nil, storeErr("find candidate", err)
	}

	voted, err := s.HasVoted(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, domain.ErrAlreadyVoted
	}

	ballot := &domain.Ballot{
		VoterID:     voterID,
		CandidateID: candidateID,
		CastAt:      s.now(),
	}
	if err := s.ballots.Insert(ctx, ballot); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			s.log.Warn().Str("voter_id", voterID).Msg("concurrent duplicate ballot rejected")
			return nil, domain.ErrAlreadyVoted
		}
		s.log.Error().Err(err).Str("voter_id", voterID).Msg("ballot insert failed")
		return nil, storeErr("cast ballot", err)
	}

	s.log.Info().Str("voter_id", voterID).Str("candidate_id", candidateID).Msg("ballot cast")
	s.confirm(ctx, ballot, candidate)
	return ballot, nil
}

// HasVoted reports whether a ballot exists for voterID.
func (s *BallotService) HasVoted(ctx context.Context, voterID string) (bool, error) {
	_, err := s.ballots.FindByVoter(ctx, voterID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrBallotNotFound):
		return false, nil
	default:
		return false, storeErr("find ballot", err)
	}
}

// BallotOf returns the voter's ballot or domain.ErrBallotNotFound.
func (s *BallotService) BallotOf(ctx context.Context, voterID string) (*domain.Ballot, error) {
	ballot, err := s.ballots.FindByVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, domain.ErrBallotNotFound) {
			return nil, err
		}
		return nil, storeErr("find ballot", err)
	}
	return ballot, nil
}

// Results aggregates the ballot set into a TallyView labelled with
// candidate names.
func (s *BallotService) Results(ctx context.Context) (domain.TallyView, error) {
	counts, err := s.ballots.CountByCandidate(ctx)
	if err != nil {
		return domain.TallyView{}, storeErr("count ballots", err)
	}
	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return domain.TallyView{}, storeErr("list candidates", err)
	}
	names := make(map[string]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}
	for i := range counts {
		counts[i].CandidateName = names[counts[i].CandidateID]
	}
	return domain.NewTallyView(counts), nil
}

// Candidates lists the choices a ballot may name.
func (s *BallotService) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return nil, storeErr("list candidates", err)
	}
	return candidates, nil
}

// confirm queues a confirmation text; it never affects the cast outcome.
func (s *BallotService) confirm(ctx context.Context, ballot *domain.Ballot, candidate *domain.Candidate) {
	if s.notifier == nil {
		return
	}
	voter, err := s.identities.FindByID(ctx, ballot.VoterID)
	if err != nil {
		s.log.Warn().Err(err).Str("voter_id", ballot.VoterID).Msg("vote confirmation skipped")
		return
	}
	if !s.notifier.Enqueue(ports.VoteConfirmation{
		PhoneNumber:   voter.PhoneNumber,
		CandidateID:   ballot.CandidateID,
		CandidateName: candidate.Name,
	}) {
		s.log.Warn().Str("voter_id", ballot.VoterID).Msg("vote confirmation queue full")
	}
}
