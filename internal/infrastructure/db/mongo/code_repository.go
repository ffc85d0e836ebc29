package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

type CodeRepository struct {
	col *mongo.Collection
}

func NewCodeRepository(db *mongo.Database) *CodeRepository {
	return &CodeRepository{col: db.Collection(collectionCodes)}
}

// Replace upserts the document keyed by phone.
func (r *CodeRepository) Replace(ctx context.Context, code *domain.VerificationCode) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.ReplaceOne(ctx, bson.M{"phone": code.PhoneNumber}, code, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace code: %w", err)
	}
	return nil
}

func (r *CodeRepository) FindByPhone(ctx context.Context, phone string) (*domain.VerificationCode, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c domain.VerificationCode
	if err := r.col.FindOne(ctx, bson.M{"phone": phone}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}
	return &c, nil
}

func (r *CodeRepository) Consume(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, consumeFilter(id), setConsumed(true))
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *CodeRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.UpdateOne(ctx, issuanceFilter(id), setConsumed(false)); err != nil {
		return fmt.Errorf("release code: %w", err)
	}
	return nil
}

func (r *CodeRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, issuanceFilter(id)); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return nil
}

func (r *CodeRepository) PurgeExpired(ctx context.Context, t time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, purgeFilter(t))
	if err != nil {
		return 0, fmt.Errorf("purge codes: %w", err)
	}
	return res.DeletedCount, nil
}

func issuanceFilter(id string) bson.M {
	return bson.M{"issuance_id": id}
}

// consumeFilter only matches an unspent code, so of two racing consumers
// exactly one modifies the document.
func consumeFilter(id string) bson.M {
	return bson.M{"issuance_id": id, "consumed": false}
}

func setConsumed(consumed bool) bson.M {
	return bson.M{"$set": bson.M{"consumed": consumed}}
}

func purgeFilter(t time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"consumed": true},
		bson.M{"expires_at": bson.M{"$lt": t}},
	}}
}
