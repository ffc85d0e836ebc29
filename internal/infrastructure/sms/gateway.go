// Package sms delivers text messages through an HTTP link gateway, or to
// the log when running locally.
package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	// The gateway answers with a bare status code; "0" means accepted.
	statusAccepted = "0"
)

// ErrRejected is returned when the gateway answers with a non-zero status.
var ErrRejected = errors.New("sms gateway rejected message")

// GatewayConfig holds the link gateway credentials.
type GatewayConfig struct {
	URL      string
	From     string
	Username string
	Password string
	Domain   string
	Timeout  time.Duration
}

// Gateway sends texts with a single GET request per message.
type Gateway struct {
	cfg    GatewayConfig
	client *http.Client
}

func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (g *Gateway) SendText(ctx context.Context, to, body string) error {
	endpoint, err := url.Parse(g.cfg.URL)
	if err != nil {
		return fmt.Errorf("sms gateway url: %w", err)
	}
	q := endpoint.Query()
	q.Set("FROM", g.cfg.From)
	q.Set("TO", to)
	q.Set("TEXT", body)
	q.Set("USERNAME", g.cfg.Username)
	q.Set("PASSWORD", g.cfg.Password)
	q.Set("DOMAIN", g.cfg.Domain)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if err != nil {
		return fmt.Errorf("sms read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", ErrRejected, resp.StatusCode)
	}
	if status := strings.TrimSpace(string(raw)); status != statusAccepted {
		return fmt.Errorf("%w: status %q", ErrRejected, status)
	}
	return nil
}
