package domain

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrAlreadyVoted     = errors.New("voter has already cast a ballot")
	ErrBallotNotFound   = errors.New("ballot not found")
	ErrInvalidCandidate = errors.New("invalid candidate")
)

// Ballot links one voter to one candidate. At most one exists per voter
// and it is never modified once written.
type Ballot struct {
	VoterID     string    `json:"voter_id" bson:"voter_id"`
	CandidateID string    `json:"candidate_id" bson:"candidate_id"`
	CastAt      time.Time `json:"cast_at" bson:"cast_at"`
}

// Candidate is a choice a ballot may name.
type Candidate struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// TallyEntry is the vote count of a single candidate.
type TallyEntry struct {
	CandidateID   string `json:"candidate_id" bson:"_id"`
	CandidateName string `json:"candidate_name,omitempty" bson:"-"`
	Votes         int64  `json:"votes" bson:"votes"`
	Leader        bool   `json:"leader,omitempty" bson:"-"`
}

// TallyView is the read-time aggregation of the ballot set.
type TallyView struct {
	Entries []TallyEntry `json:"entries"`
	Total   int64        `json:"total"`
}

// NewTallyView orders counts by votes descending, candidate id ascending,
// and marks the first entry with at least one vote as the leader.
func NewTallyView(counts []TallyEntry) TallyView {
	entries := make([]TallyEntry, 0, len(counts))
	var total int64
	for _, c := range counts {
		if c.Votes <= 0 {
			continue
		}
		c.Leader = false
		entries = append(entries, c)
		total += c.Votes
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Votes != entries[j].Votes {
			return entries[i].Votes > entries[j].Votes
		}
		return entries[i].CandidateID < entries[j].CandidateID
	})

	if len(entries) > 0 {
		entries[0].Leader = true
	}
	return TallyView{Entries: entries, Total: total}
}

// Votes returns the count for candidateID, zero when absent.
func (v TallyView) Votes(candidateID string) int64 {
	for _, e := range v.Entries {
		if e.CandidateID == candidateID {
			return e.Votes
		}
	}
	return 0
}
