package ports

import (
	"context"
	"time"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// CodeRepository persists verification codes. Implementations keep at most
// one code per phone number and must serialise conflicting writes on it.
type CodeRepository interface {
	// Replace stores code as the only code for its phone number, discarding
	// whatever was there before.
	Replace(ctx context.Context, code *domain.VerificationCode) error

	// FindByPhone returns the current code for phone, consumed or not.
	// Returns domain.ErrCodeNotFound when there is none.
	FindByPhone(ctx context.Context, phone string) (*domain.VerificationCode, error)

	// Consume flips consumed=false to true for the given issuance and
	// reports whether this call did the flip.
	Consume(ctx context.Context, id string) (bool, error)

	// Release undoes a Consume for the given issuance if it is still the
	// current code for its phone number.
	Release(ctx context.Context, id string) error

	// Delete removes the given issuance. Deleting a missing issuance is not an error.
	Delete(ctx context.Context, id string) error

	// PurgeExpired removes codes that expired before t or were consumed.
	PurgeExpired(ctx context.Context, t time.Time) (int64, error)
}
