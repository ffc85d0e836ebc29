package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"CANDIDATES": "candidate-7:Candidate Seven",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Port != "8080" || cfg.StoreDriver != DriverMemory {
		t.Fatalf("unexpected defaults: port=%s driver=%s", cfg.Port, cfg.StoreDriver)
	}
	if cfg.AdminPhone != "09132323123" {
		t.Fatalf("unexpected admin phone %s", cfg.AdminPhone)
	}
	if cfg.OTP.TTL != 5*time.Minute || cfg.OTP.ResendCooldown != 2*time.Minute {
		t.Fatalf("unexpected OTP defaults %+v", cfg.OTP)
	}
	if cfg.Notify.VoteConfirmations || cfg.Notify.Workers != 4 {
		t.Fatalf("unexpected notify defaults %+v", cfg.Notify)
	}
	if cfg.Candidates["candidate-7"] != "Candidate Seven" {
		t.Fatalf("unexpected candidates %+v", cfg.Candidates)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":                       "production",
		"JWT_SECRET":                "s3cret",
		"STORE_DRIVER":              "postgres",
		"OTP_TTL":                   "2m",
		"NOTIFY_VOTE_CONFIRMATIONS": "true",
		"REDIS_ADDR":                "redis:6379",
		"SMS_GATEWAY_URL":           "https://sms.example.test/send",
		"CANDIDATES":                "candidate-7:Candidate Seven,candidate-9:Candidate Nine",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.OTP.TTL != 2*time.Minute || !cfg.Notify.VoteConfirmations {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("unexpected redis addr %s", cfg.Redis.Addr)
	}
	if len(cfg.Candidates) != 2 || cfg.Candidates["candidate-9"] != "Candidate Nine" {
		t.Fatalf("unexpected candidates %+v", cfg.Candidates)
	}
}

func TestLoad_Invalid(t *testing.T) {
	prod := map[string]string{"ENV": "production", "JWT_SECRET": "s3cret", "CANDIDATES": "c1:One"}
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "cassandra"}, "STORE_DRIVER"},
		{"bad admin phone", map[string]string{"ADMIN_PHONE": "12345"}, "ADMIN_PHONE"},
		{"missing secret in production", map[string]string{"ENV": "production"}, "JWT_SECRET"},
		{"console sms in production", prod, "SMS_GATEWAY_URL"},
		{"no candidates", map[string]string{}, "CANDIDATES"},
		{"blank candidate id", map[string]string{"CANDIDATES": " :Nobody"}, "CANDIDATES"},
		{"zero token ttl", map[string]string{"CANDIDATES": "c1:One", "TOKEN_TTL": "0s"}, "TOKEN_TTL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
