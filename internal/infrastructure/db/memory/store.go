// Package memory is a process-local store used for development and tests.
// A Store is an explicit handle: create it at startup, drop it at shutdown.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// Store implements the code, identity and ballot repositories over maps
// guarded by one mutex, so every check-then-write below is atomic.
type Store struct {
	mu         sync.Mutex
	codes      map[string]domain.VerificationCode // phone -> code
	identities map[string]domain.Identity         // id -> identity
	phones     map[string]string                  // phone -> id
	ballots    map[string]domain.Ballot           // voter id -> ballot
}

func NewStore() *Store {
	return &Store{
		codes:      make(map[string]domain.VerificationCode),
		identities: make(map[string]domain.Identity),
		phones:     make(map[string]string),
		ballots:    make(map[string]domain.Ballot),
	}
}

// --- codes ---

func (s *Store) Replace(_ context.Context, code *domain.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.PhoneNumber] = *code
	return nil
}

func (s *Store) FindByPhone(_ context.Context, phone string) (*domain.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	return &code, nil
}

func (s *Store) Consume(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for phone, code := range s.codes {
		if code.ID != id {
			continue
		}
		if code.Consumed {
			return false, nil
		}
		code.Consumed = true
		s.codes[phone] = code
		return true, nil
	}
	return false, nil
}

func (s *Store) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for phone, code := range s.codes {
		if code.ID == id {
			code.Consumed = false
			s.codes[phone] = code
			return nil
		}
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for phone, code := range s.codes {
		if code.ID == id {
			delete(s.codes, phone)
		}
	}
	return nil
}

func (s *Store) PurgeExpired(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for phone, code := range s.codes {
		if code.Consumed || code.ExpiresAt.Before(t) {
			delete(s.codes, phone)
			n++
		}
	}
	return n, nil
}

// --- ballots ---

func (s *Store) Insert(_ context.Context, ballot *domain.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ballots[ballot.VoterID]; exists {
		return domain.ErrAlreadyVoted
	}
	s.ballots[ballot.VoterID] = *ballot
	return nil
}

func (s *Store) FindByVoter(_ context.Context, voterID string) (*domain.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ballot, ok := s.ballots[voterID]
	if !ok {
		return nil, domain.ErrBallotNotFound
	}
	return &ballot, nil
}

func (s *Store) CountByCandidate(_ context.Context) ([]domain.TallyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, b := range s.ballots {
		counts[b.CandidateID]++
	}
	out := make([]domain.TallyEntry, 0, len(counts))
	for id, n := range counts {
		out = append(out, domain.TallyEntry{CandidateID: id, Votes: n})
	}
	return out, nil
}
