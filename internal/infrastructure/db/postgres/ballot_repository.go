package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

type BallotRepository struct {
	db DB
}

func NewBallotRepository(db DB) *BallotRepository {
	return &BallotRepository{db: db}
}

// Insert relies on the voter_id primary key: of two racing inserts exactly
// one affects a row.
func (r *BallotRepository) Insert(ctx context.Context, ballot *domain.Ballot) error {
	const q = `
		INSERT INTO ballots (voter_id, candidate_id, cast_at) VALUES ($1, $2, $3)
		ON CONFLICT (voter_id) DO NOTHING`
	tag, err := r.db.Exec(ctx, q, ballot.VoterID, ballot.CandidateID, ballot.CastAt)
	if err != nil {
		return fmt.Errorf("insert ballot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyVoted
	}
	return nil
}

func (r *BallotRepository) FindByVoter(ctx context.Context, voterID string) (*domain.Ballot, error) {
	var b domain.Ballot
	err := r.db.QueryRow(ctx,
		`SELECT voter_id, candidate_id, cast_at FROM ballots WHERE voter_id = $1`, voterID,
	).Scan(&b.VoterID, &b.CandidateID, &b.CastAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBallotNotFound
		}
		return nil, fmt.Errorf("find ballot: %w", err)
	}
	return &b, nil
}

func (r *BallotRepository) CountByCandidate(ctx context.Context) ([]domain.TallyEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT candidate_id, COUNT(*) FROM ballots GROUP BY candidate_id`)
	if err != nil {
		return nil, fmt.Errorf("count ballots: %w", err)
	}
	defer rows.Close()

	var out []domain.TallyEntry
	for rows.Next() {
		var e domain.TallyEntry
		if err := rows.Scan(&e.CandidateID, &e.Votes); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count ballots: %w", err)
	}
	return out, nil
}
