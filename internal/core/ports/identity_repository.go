package ports

import (
	"context"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// IdentityRepository persists identities. Phone numbers are unique.
type IdentityRepository interface {
	FindByPhone(ctx context.Context, phone string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	// Create returns domain.ErrIdentityExists when the phone number is taken.
	Create(ctx context.Context, identity *domain.Identity) error
	// Update overwrites display name, role and approval of an existing identity.
	Update(ctx context.Context, identity *domain.Identity) error
}
