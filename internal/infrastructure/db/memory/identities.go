package memory

import (
	"context"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

// Identities exposes the identity side of a Store. The repositories share
// method names (FindByPhone), so each concern gets its own view.
type Identities struct{ s *Store }

func (s *Store) Identities() *Identities { return &Identities{s: s} }

func (r *Identities) FindByPhone(_ context.Context, phone string) (*domain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.phones[phone]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	identity := r.s.identities[id]
	return &identity, nil
}

func (r *Identities) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return &identity, nil
}

func (r *Identities) Create(_ context.Context, identity *domain.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.phones[identity.PhoneNumber]; taken {
		return domain.ErrIdentityExists
	}
	if _, taken := r.s.identities[identity.ID]; taken {
		return domain.ErrIdentityExists
	}
	r.s.identities[identity.ID] = *identity
	r.s.phones[identity.PhoneNumber] = identity.ID
	return nil
}

func (r *Identities) Update(_ context.Context, identity *domain.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.identities[identity.ID]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	existing.DisplayName = identity.DisplayName
	existing.Role = identity.Role
	existing.Approved = identity.Approved
	existing.UpdatedAt = identity.UpdatedAt
	r.s.identities[identity.ID] = existing
	return nil
}
