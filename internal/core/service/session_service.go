package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

const (
	memberDisplayName = "Member"
	adminDisplayName  = "System Administrator"
)

// SessionManager turns a verified phone number into an authenticated
// identity, keeps it in a durable slot and exposes it to observers.
type SessionManager struct {
	identities ports.IdentityRepository
	slot       ports.SessionSlot
	adminPhone string
	now        func() time.Time
	log        zerolog.Logger

	mu        sync.RWMutex
	current   *domain.Identity
	expiresAt time.Time
	nextSub   int
	subs      map[int]chan *domain.Identity
}

// sessionRecord is the slot payload.
type sessionRecord struct {
	Identity  *domain.Identity `json:"identity"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// NewSessionManager binds a manager to one durable slot. adminPhone is the
// single bootstrap number provisioned as an approved admin.
func NewSessionManager(identities ports.IdentityRepository, slot ports.SessionSlot, adminPhone string, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		identities: identities,
		slot:       slot,
		adminPhone: adminPhone,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
		subs:       make(map[int]chan *domain.Identity),
	}
}

// Establish resolves or provisions the identity for a verified phone number
// and installs it as the current session. On failure the previous session
// is left untouched.
func (m *SessionManager) Establish(ctx context.Context, phone string) (*domain.Identity, error) {
	identity, err := m.resolve(ctx, phone)
	if err != nil {
		m.log.Error().Err(err).Str("phone", domain.MaskPhone(phone)).Msg("identity resolution failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionEstablishFailed, err)
	}

	record := sessionRecord{Identity: identity}
	if expiresAt := m.ExpiresAt(); !expiresAt.IsZero() {
		record.ExpiresAt = &expiresAt
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: encode identity: %w", domain.ErrSessionEstablishFailed, err)
	}
	if err := m.slot.Save(ctx, payload); err != nil {
		m.log.Error().Err(err).Str("identity_id", identity.ID).Msg("session slot write failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionEstablishFailed, err)
	}

	m.set(identity)
	m.log.Info().Str("identity_id", identity.ID).Str("role", string(identity.Role)).Msg("session established")
	return clone(identity), nil
}

// Restore re-hydrates the session from the durable slot. A missing,
// malformed or expired slot yields no session; it never returns an error.
func (m *SessionManager) Restore(ctx context.Context) *domain.Identity {
	payload, err := m.slot.Load(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("session slot read failed")
		return nil
	}
	if len(payload) == 0 {
		return nil
	}

	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil || record.Identity == nil || !record.Identity.WellFormed() {
		m.log.Warn().Err(err).Msg("discarding malformed session slot")
		m.discard(ctx)
		return nil
	}
	if record.ExpiresAt != nil && !m.now().Before(*record.ExpiresAt) {
		m.log.Debug().Str("identity_id", record.Identity.ID).Msg("discarding expired session slot")
		m.discard(ctx)
		return nil
	}

	m.mu.Lock()
	m.expiresAt = time.Time{}
	if record.ExpiresAt != nil {
		m.expiresAt = *record.ExpiresAt
	}
	m.mu.Unlock()

	m.set(record.Identity)
	return clone(record.Identity)
}

// SetExpiry bounds the session lifetime. The zero time means no expiry.
// It applies to the next Establish and to Expired.
func (m *SessionManager) SetExpiry(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiresAt = t
}

func (m *SessionManager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expiresAt
}

// Expired reports whether the session lifetime has run out at now.
func (m *SessionManager) Expired(now time.Time) bool {
	expiresAt := m.ExpiresAt()
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

func (m *SessionManager) discard(ctx context.Context) {
	if err := m.slot.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear session slot")
	}
}

// Terminate clears the durable slot and the in-memory session. Calling it
// without a session is a no-op.
func (m *SessionManager) Terminate(ctx context.Context) error {
	if err := m.slot.Clear(ctx); err != nil {
		return storeErr("terminate session", err)
	}
	if m.Current() != nil {
		m.set(nil)
	}
	return nil
}

// Current returns a copy of the session identity, or nil.
func (m *SessionManager) Current() *domain.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.current)
}

// Subscribe returns a channel receiving the identity after every change
// (nil on terminate). Slow subscribers only see the latest value.
func (m *SessionManager) Subscribe() (<-chan *domain.Identity, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan *domain.Identity, 1)
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
}

func (m *SessionManager) set(identity *domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = clone(identity)
	for _, ch := range m.subs {
		// Drop a stale pending value so the channel always holds the latest.
		select {
		case <-ch:
		default:
		}
		ch <- clone(identity)
	}
}

func (m *SessionManager) resolve(ctx context.Context, phone string) (*domain.Identity, error) {
	isAdmin := m.adminPhone != "" && phone == m.adminPhone

	identity, err := m.identities.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		if isAdmin && (identity.Role != domain.RoleAdmin || !identity.Approved) {
			identity.Role = domain.RoleAdmin
			identity.Approved = true
			identity.UpdatedAt = m.now()
			if err := m.identities.Update(ctx, identity); err != nil {
				return nil, fmt.Errorf("promote bootstrap admin: %w", err)
			}
		}
		return identity, nil
	case !errors.Is(err, domain.ErrIdentityNotFound):
		return nil, fmt.Errorf("find identity: %w", err)
	}

	now := m.now()
	identity = &domain.Identity{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		DisplayName: memberDisplayName,
		Role:        domain.RoleMember,
		Approved:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if isAdmin {
		identity.DisplayName = adminDisplayName
		identity.Role = domain.RoleAdmin
		identity.Approved = true
	}

	if err := m.identities.Create(ctx, identity); err != nil {
		if !errors.Is(err, domain.ErrIdentityExists) {
			return nil, fmt.Errorf("create identity: %w", err)
		}
		// A concurrent login provisioned the same number first.
		existing, findErr := m.identities.FindByPhone(ctx, phone)
		if findErr != nil {
			return nil, fmt.Errorf("find identity after conflict: %w", findErr)
		}
		return existing, nil
	}
	return identity, nil
}

func clone(identity *domain.Identity) *domain.Identity {
	if identity == nil {
		return nil
	}
	c := *identity
	return &c
}
