package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.BillingSchedule != "0 2 * * *" {
		t.Fatalf("unexpected billing schedule %q", cfg.BillingSchedule)
	}
	if cfg.Billing.Concurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.Billing.Concurrency)
	}
	if cfg.Billing.PlatformFeeBasisPoints != 150 {
		t.Fatalf("expected 150 bps platform fee, got %d", cfg.Billing.PlatformFeeBasisPoints)
	}
	if cfg.Billing.ChargeTimeout != 30*time.Second {
		t.Fatalf("expected 30s charge timeout, got %s", cfg.Billing.ChargeTimeout)
	}
	if cfg.IsProduction() {
		t.Fatalf("development config must not report production")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MONTHLYCLUB_ENVIRONMENT", "Production")
	t.Setenv("MONTHLYCLUB_BILLING_CURRENCY", "usd")
	t.Setenv("MONTHLYCLUB_RATE_LIMIT_LIMIT", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production environment, got %q", cfg.Environment)
	}
	if cfg.Billing.Currency != "usd" {
		t.Fatalf("expected usd currency, got %q", cfg.Billing.Currency)
	}
	if cfg.RateLimit.Limit != 3 {
		t.Fatalf("expected rate limit 3, got %d", cfg.RateLimit.Limit)
	}
}
