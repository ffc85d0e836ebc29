package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

const (
	sessionSlotPrefix = "session:"
	defaultSessionTTL = 24 * time.Hour
)

// SessionRegistry keeps one SessionManager per session id so many devices
// can hold sessions at once. Each manager owns the slot "session:<sid>".
//
// Operations on one session id are serialised, so a logout can never be
// undone by a lookup that was restoring the same session.
type SessionRegistry struct {
	identities ports.IdentityRepository
	slots      ports.SlotStore
	adminPhone string
	ttl        time.Duration
	now        func() time.Time
	log        zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	voters   map[string]map[string]struct{} // identity id -> session ids
	locks    map[string]*sidLock
}

type sessionEntry struct {
	manager *SessionManager
	voterID string
}

type sidLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionRegistry returns an empty registry whose sessions last 24h.
func NewSessionRegistry(identities ports.IdentityRepository, slots ports.SlotStore, adminPhone string, log zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		identities: identities,
		slots:      slots,
		adminPhone: adminPhone,
		ttl:        defaultSessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
		sessions:   make(map[string]*sessionEntry),
		voters:     make(map[string]map[string]struct{}),
		locks:      make(map[string]*sidLock),
	}
}

// WithTTL sets the session lifetime. Non-positive values are ignored.
func (r *SessionRegistry) WithTTL(ttl time.Duration) *SessionRegistry {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

func (r *SessionRegistry) WithClock(now func() time.Time) *SessionRegistry {
	r.now = now
	return r
}

// Open establishes a new session for a verified phone number.
func (r *SessionRegistry) Open(ctx context.Context, phone string) (string, *domain.Identity, error) {
	sid := uuid.NewString()
	unlock := r.lockSession(sid)
	defer unlock()

	manager := r.manager(sid)
	manager.SetExpiry(r.now().Add(r.ttl))

	identity, err := manager.Establish(ctx, phone)
	if err != nil {
		return "", nil, err
	}
	r.track(sid, manager, identity.ID)
	return sid, identity, nil
}

// Lookup returns the identity of a live session, restoring it from the
// durable slot when this process has not seen it yet. Expired sessions are
// dropped and reported as ErrNoSession.
func (r *SessionRegistry) Lookup(ctx context.Context, sessionID string) (*domain.Identity, error) {
	sid, ok := sessionKey(sessionID)
	if !ok {
		return nil, domain.ErrNoSession
	}
	unlock := r.lockSession(sid)
	defer unlock()

	if entry := r.entry(sid); entry != nil {
		if entry.manager.Expired(r.now()) {
			r.drop(ctx, sid, entry)
			return nil, domain.ErrNoSession
		}
		if identity := entry.manager.Current(); identity != nil {
			return identity, nil
		}
		return nil, domain.ErrNoSession
	}

	manager := r.manager(sid)
	identity := manager.Restore(ctx)
	if identity == nil {
		return nil, domain.ErrNoSession
	}
	if manager.ExpiresAt().IsZero() {
		manager.SetExpiry(r.now().Add(r.ttl))
	}
	r.track(sid, manager, identity.ID)
	return identity, nil
}

// Close terminates a session. Closing an unknown or closed session is a no-op.
func (r *SessionRegistry) Close(ctx context.Context, sessionID string) error {
	sid, ok := sessionKey(sessionID)
	if !ok {
		return nil
	}
	unlock := r.lockSession(sid)
	defer unlock()

	entry := r.entry(sid)
	manager := r.manager(sid)
	if entry != nil {
		manager = entry.manager
	}
	if err := manager.Terminate(ctx); err != nil {
		return err
	}
	if entry != nil {
		r.untrack(sid, entry.voterID)
	}
	return nil
}

// IsActive reports whether voterID holds at least one unexpired session.
func (r *SessionRegistry) IsActive(_ context.Context, voterID string) bool {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid := range r.voters[voterID] {
		if entry := r.sessions[sid]; entry != nil && !entry.manager.Expired(now) {
			return true
		}
	}
	return false
}

// Refresh replaces the cached identity of every live session held by id,
// e.g. after an approval change.
func (r *SessionRegistry) Refresh(ctx context.Context, identity *domain.Identity) {
	r.mu.Lock()
	sids := make([]string, 0, len(r.voters[identity.ID]))
	for sid := range r.voters[identity.ID] {
		sids = append(sids, sid)
	}
	r.mu.Unlock()

	for _, sid := range sids {
		r.refresh(ctx, sid, identity)
	}
}

// Sweep drops expired sessions held in memory and, when the slot store can
// purge, slot rows not written for a full session lifetime. It returns the
// number of sessions and rows removed.
func (r *SessionRegistry) Sweep(ctx context.Context) (int64, error) {
	now := r.now()

	r.mu.Lock()
	var expired []string
	for sid, entry := range r.sessions {
		if entry.manager.Expired(now) {
			expired = append(expired, sid)
		}
	}
	r.mu.Unlock()

	var removed int64
	for _, sid := range expired {
		if r.dropIfExpired(ctx, sid) {
			removed++
		}
	}

	purger, ok := r.slots.(ports.SlotPurger)
	if !ok {
		return removed, nil
	}
	n, err := purger.PurgeSlots(ctx, now.Add(-r.ttl))
	if err != nil {
		return removed, storeErr("purge session slots", err)
	}
	return removed + n, nil
}

func (r *SessionRegistry) refresh(ctx context.Context, sid string, identity *domain.Identity) {
	unlock := r.lockSession(sid)
	defer unlock()

	entry := r.entry(sid)
	if entry == nil || entry.voterID != identity.ID {
		return
	}
	if _, err := entry.manager.Establish(ctx, identity.PhoneNumber); err != nil {
		r.log.Warn().Err(err).Str("identity_id", identity.ID).Msg("failed to refresh session")
	}
}

func (r *SessionRegistry) dropIfExpired(ctx context.Context, sid string) bool {
	unlock := r.lockSession(sid)
	defer unlock()

	entry := r.entry(sid)
	if entry == nil || !entry.manager.Expired(r.now()) {
		return false
	}
	r.drop(ctx, sid, entry)
	return true
}

// drop forgets an expired session. The caller holds the session lock.
func (r *SessionRegistry) drop(ctx context.Context, sid string, entry *sessionEntry) {
	if err := entry.manager.Terminate(ctx); err != nil {
		r.log.Warn().Err(err).Str("identity_id", entry.voterID).Msg("failed to clear expired session")
	}
	r.untrack(sid, entry.voterID)
	r.log.Debug().Str("identity_id", entry.voterID).Msg("session expired")
}

func (r *SessionRegistry) lockSession(sid string) func() {
	r.mu.Lock()
	l, ok := r.locks[sid]
	if !ok {
		l = &sidLock{}
		r.locks[sid] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(r.locks, sid)
		}
		r.mu.Unlock()
	}
}

func (r *SessionRegistry) entry(sid string) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sid]
}

func (r *SessionRegistry) track(sid string, manager *SessionManager, voterID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{manager: manager, voterID: voterID}
	if r.voters[voterID] == nil {
		r.voters[voterID] = make(map[string]struct{})
	}
	r.voters[voterID][sid] = struct{}{}
}

func (r *SessionRegistry) untrack(sid, voterID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	delete(r.voters[voterID], sid)
	if len(r.voters[voterID]) == 0 {
		delete(r.voters, voterID)
	}
}

func (r *SessionRegistry) manager(sid string) *SessionManager {
	m := NewSessionManager(r.identities, r.slots.Slot(sessionSlotPrefix+sid), r.adminPhone, r.log)
	m.now = r.now
	return m
}

// sessionKey normalises a session id, rejecting anything that is not a UUID.
func sessionKey(sessionID string) (string, bool) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
