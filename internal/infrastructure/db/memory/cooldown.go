package memory

import (
	"context"
	"sync"
	"time"
)

// Cooldown is the in-process resend throttle.
type Cooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{until: make(map[string]time.Time), now: time.Now}
}

func (c *Cooldown) Acquire(_ context.Context, phone string, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if until, ok := c.until[phone]; ok && now.Before(until) {
		return false, nil
	}
	c.until[phone] = now.Add(window)
	return true, nil
}

func (c *Cooldown) Release(_ context.Context, phone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.until, phone)
	return nil
}
