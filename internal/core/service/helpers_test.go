package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
	"github.com/unionportal/ballot-system/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type sentText struct {
	to   string
	body string
}

type stubSender struct {
	mu   sync.Mutex
	err  error
	sent []sentText
}

func (s *stubSender) SendText(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentText{to: to, body: body})
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sequence returns a generator that yields codes in order.
func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(codes) {
			return "", errors.New("code sequence exhausted")
		}
		c := codes[i]
		i++
		return c, nil
	}
}

// failingIdentities fails every call with err.
type failingIdentities struct{ err error }

func (f failingIdentities) FindByPhone(context.Context, string) (*domain.Identity, error) {
	return nil, f.err
}
func (f failingIdentities) FindByID(context.Context, string) (*domain.Identity, error) {
	return nil, f.err
}
func (f failingIdentities) Create(context.Context, *domain.Identity) error { return f.err }
func (f failingIdentities) Update(context.Context, *domain.Identity) error { return f.err }

// failingSlot fails writes with err.
type failingSlot struct{ err error }

func (f failingSlot) Load(context.Context) ([]byte, error) { return nil, nil }
func (f failingSlot) Save(context.Context, []byte) error   { return f.err }
func (f failingSlot) Clear(context.Context) error          { return f.err }

type staticSessions map[string]bool

func (s staticSessions) IsActive(_ context.Context, voterID string) bool { return s[voterID] }

type stubNotifier struct {
	queued []ports.VoteConfirmation
	full   bool
}

func (n *stubNotifier) Enqueue(c ports.VoteConfirmation) bool {
	if n.full {
		return false
	}
	n.queued = append(n.queued, c)
	return true
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

const testAdminPhone = "09132323123"

func newTestOTP(store *memory.Store, sender ports.TextSender, clock *fakeClock, gen CodeGenerator) *OTPService {
	return NewOTPService(store, sender, nil, OTPConfig{TTL: domain.CodeTTL, HashCost: bcrypt.MinCost}, zerolog.Nop()).
		WithGenerator(gen).
		WithClock(clock.Now)
}

func testCandidates() *memory.Candidates {
	return memory.NewCandidates(map[string]string{
		"candidate-7": "Candidate Seven",
		"candidate-9": "Candidate Nine",
		"candidate-a": "Ada",
		"candidate-b": "Bea",
		"candidate-c": "Cy",
	})
}
