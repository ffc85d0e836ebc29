package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

type BallotRepository struct {
	col *mongo.Collection
}

func NewBallotRepository(db *mongo.Database) *BallotRepository {
	return &BallotRepository{col: db.Collection(collectionBallots)}
}

// Insert depends on the unique voter_id index created by EnsureIndexes.
func (r *BallotRepository) Insert(ctx context.Context, ballot *domain.Ballot) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, ballot)
	return insertErr(err, domain.ErrAlreadyVoted, "insert ballot")
}

func (r *BallotRepository) FindByVoter(ctx context.Context, voterID string) (*domain.Ballot, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var b domain.Ballot
	if err := r.col.FindOne(ctx, bson.M{"voter_id": voterID}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBallotNotFound
		}
		return nil, fmt.Errorf("find ballot: %w", err)
	}
	return &b, nil
}

func (r *BallotRepository) CountByCandidate(ctx context.Context) ([]domain.TallyEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, tallyPipeline())
	if err != nil {
		return nil, fmt.Errorf("count ballots: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.TallyEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode tally: %w", err)
	}
	return out, nil
}

// tallyPipeline groups ballots into documents shaped like domain.TallyEntry.
func tallyPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$candidate_id"},
			{Key: "votes", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// insertErr maps a unique index violation to dup and wraps anything else.
func insertErr(err, dup error, op string) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return dup
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
