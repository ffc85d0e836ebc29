package redis

import (
	"testing"
	"time"
)

func TestOptions(t *testing.T) {
	t.Run("host and port", func(t *testing.T) {
		opts, err := options(Config{Addr: "cache:6379", Password: "pw", DB: 2})
		if err != nil {
			t.Fatalf("options: %v", err)
		}
		if opts.Addr != "cache:6379" || opts.Password != "pw" || opts.DB != 2 {
			t.Fatalf("unexpected options: %+v", opts)
		}
		if opts.DialTimeout != defaultTimeout {
			t.Fatalf("expected default timeout, got %v", opts.DialTimeout)
		}
	})

	t.Run("url", func(t *testing.T) {
		opts, err := options(Config{Addr: "redis://:secret@cache:6380/3", Timeout: time.Second})
		if err != nil {
			t.Fatalf("options: %v", err)
		}
		if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 3 {
			t.Fatalf("unexpected options: %+v", opts)
		}
		if opts.ReadTimeout != time.Second {
			t.Fatalf("timeout not applied: %v", opts.ReadTimeout)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if _, err := options(Config{Addr: "redis://cache:6379/notadb"}); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestCooldownKey(t *testing.T) {
	c := NewCooldown(nil)
	if got := c.key("09121234567"); got != "otp:cooldown:09121234567" {
		t.Fatalf("unexpected key %q", got)
	}
}
