package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

// IdentityRefresher pushes an updated identity into live sessions.
type IdentityRefresher interface {
	Refresh(ctx context.Context, identity *domain.Identity)
}

// IdentityService handles administrative changes to identities.
type IdentityService struct {
	identities ports.IdentityRepository
	sessions   IdentityRefresher
	adminPhone string
	log        zerolog.Logger
}

func NewIdentityService(identities ports.IdentityRepository, sessions IdentityRefresher, adminPhone string, log zerolog.Logger) *IdentityService {
	return &IdentityService{identities: identities, sessions: sessions, adminPhone: adminPhone, log: log}
}

// SetApproval approves or unapproves an identity. Only admins may call it
// and the bootstrap admin cannot be unapproved.
func (s *IdentityService) SetApproval(ctx context.Context, actorRole domain.Role, id string, approved bool) (*domain.Identity, error) {
	if actorRole != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	identity, err := s.identities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, err
		}
		return nil, storeErr("find identity", err)
	}
	if identity.PhoneNumber == s.adminPhone && !approved {
		return nil, domain.ErrForbidden
	}
	if identity.Approved == approved {
		return identity, nil
	}

	identity.Approved = approved
	identity.UpdatedAt = time.Now().UTC()
	if err := s.identities.Update(ctx, identity); err != nil {
		return nil, storeErr("update identity", err)
	}

	if s.sessions != nil {
		s.sessions.Refresh(ctx, identity)
	}
	s.log.Info().Str("identity_id", id).Bool("approved", approved).Msg("identity approval changed")
	return identity, nil
}
