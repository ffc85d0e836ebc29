package memory

import (
	"context"
	"sync"
	"time"

	"github.com/unionportal/ballot-system/internal/core/ports"
)

// Slots is a non-durable SlotStore; sessions do not survive a restart.
type Slots struct {
	mu   sync.Mutex
	data map[string]savedSlot
	now  func() time.Time
}

type savedSlot struct {
	payload []byte
	savedAt time.Time
}

func NewSlots() *Slots {
	return &Slots{data: make(map[string]savedSlot), now: time.Now}
}

// WithClock replaces the clock used to stamp saves.
func (s *Slots) WithClock(now func() time.Time) *Slots {
	s.now = now
	return s
}

func (s *Slots) Slot(name string) ports.SessionSlot {
	return &slot{store: s, name: name}
}

// PurgeSlots drops slots saved before cutoff.
func (s *Slots) PurgeSlots(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for name, saved := range s.data {
		if saved.savedAt.Before(cutoff) {
			delete(s.data, name)
			n++
		}
	}
	return n, nil
}

func (s *Slots) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

type slot struct {
	store *Slots
	name  string
}

func (sl *slot) Load(context.Context) ([]byte, error) {
	sl.store.mu.Lock()
	defer sl.store.mu.Unlock()
	saved, ok := sl.store.data[sl.name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), saved.payload...), nil
}

func (sl *slot) Save(_ context.Context, payload []byte) error {
	sl.store.mu.Lock()
	defer sl.store.mu.Unlock()
	sl.store.data[sl.name] = savedSlot{payload: append([]byte(nil), payload...), savedAt: sl.store.now()}
	return nil
}

func (sl *slot) Clear(context.Context) error {
	sl.store.mu.Lock()
	defer sl.store.mu.Unlock()
	delete(sl.store.data, sl.name)
	return nil
}
