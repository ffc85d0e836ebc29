package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// Candidates is a fixed CandidateDirectory built from configuration.
type Candidates struct {
	byID    map[string]domain.Candidate
	ordered []domain.Candidate
}

// NewCandidates takes id -> display name. Blank ids are skipped and a blank
// name falls back to the id.
func NewCandidates(names map[string]string) *Candidates {
	c := &Candidates{byID: make(map[string]domain.Candidate, len(names))}
	for id, name := range names {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = id
		}
		candidate := domain.Candidate{ID: id, Name: name}
		c.byID[id] = candidate
		c.ordered = append(c.ordered, candidate)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c
}

func (c *Candidates) Find(_ context.Context, id string) (*domain.Candidate, error) {
	candidate, ok := c.byID[id]
	if !ok {
		return nil, domain.ErrInvalidCandidate
	}
	return &candidate, nil
}

func (c *Candidates) List(context.Context) ([]domain.Candidate, error) {
	return append([]domain.Candidate(nil), c.ordered...), nil
}
