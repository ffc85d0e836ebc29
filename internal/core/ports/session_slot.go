package ports

import (
	"context"
	"time"
)

// SessionSlot is a single named durable entry holding a serialised identity.
type SessionSlot interface {
	// Load returns nil, nil when the slot is empty.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
	// Clear empties the slot; clearing an empty slot is a no-op.
	Clear(ctx context.Context) error
}

// SlotStore hands out named session slots.
type SlotStore interface {
	Slot(name string) SessionSlot
}

// SlotPurger is implemented by slot stores that can drop slots last written
// before cutoff.
type SlotPurger interface {
	PurgeSlots(ctx context.Context, cutoff time.Time) (int64, error)
}
