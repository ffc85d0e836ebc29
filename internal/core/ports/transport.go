package ports

import (
	"context"
	"time"
)

// TextSender delivers a text message to a phone number. A nil error means
// the provider acknowledged the message.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Cooldown throttles repeated code issuance per phone number.
type Cooldown interface {
	// Acquire reports whether phone may receive a new code now, and if so
	// blocks further acquisitions for window.
	Acquire(ctx context.Context, phone string, window time.Duration) (bool, error)
	Release(ctx context.Context, phone string) error
}

// VoteConfirmation is a queued notice that a ballot was recorded.
type VoteConfirmation struct {
	PhoneNumber   string
	CandidateID   string
	CandidateName string
}

// Notifier queues vote confirmations for asynchronous delivery.
type Notifier interface {
	Enqueue(n VoteConfirmation) bool
}
