package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown throttles code issuance per phone number across replicas.
// Key format: otp:cooldown:<phone>
type Cooldown struct {
	client *redis.Client
}

// NewCooldown creates a Cooldown wrapping the given Redis client.
func NewCooldown(client *redis.Client) *Cooldown {
	return &Cooldown{client: client}
}

// Acquire sets the key only if absent, so exactly one caller per window wins.
func (c *Cooldown) Acquire(ctx context.Context, phone string, window time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(phone), time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown acquire: %w", err)
	}
	return ok, nil
}

// Release lifts the cooldown, e.g. after a failed delivery.
func (c *Cooldown) Release(ctx context.Context, phone string) error {
	if err := c.client.Del(ctx, c.key(phone)).Err(); err != nil {
		return fmt.Errorf("cooldown release: %w", err)
	}
	return nil
}

func (c *Cooldown) key(phone string) string {
	return "otp:cooldown:" + phone
}
