package config

import (
	"testing"
	"time"

	"therapist-booking/internal/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.TokenStore != TokenStorePostgres {
		t.Fatalf("expected postgres token store by default, got %s", cfg.TokenStore)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}

	ttls := cfg.TokenTTLs()
	for _, p := range domain.Purposes {
		if ttls[p] != 30*time.Minute {
			t.Fatalf("expected 30m ttl for %s, got %v", p, ttls[p])
		}
	}

	limits := cfg.RateLimits()
	if limits[domain.PurposeEmailVerification].Max != 4 || limits[domain.PurposePasswordReset].Max != 4 {
		t.Fatalf("expected ceiling 4 for verification/reset, got %+v", limits)
	}
	if limits[domain.PurposeDoctorRegistration].Max != 5 {
		t.Fatalf("expected ceiling 5 for doctor approval, got %+v", limits[domain.PurposeDoctorRegistration])
	}
	for p, l := range limits {
		if l.Window != time.Hour {
			t.Fatalf("expected 1h window for %s, got %v", p, l.Window)
		}
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("RESET_TOKEN_TTL", "15m")
	t.Setenv("RATE_LIMIT_DOCTOR", "7")
	t.Setenv("RATE_LIMIT_WINDOW", "2h")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := cfg.TokenTTLs()[domain.PurposePasswordReset]; got != 15*time.Minute {
		t.Fatalf("expected reset ttl 15m, got %v", got)
	}
	doctor := cfg.RateLimits()[domain.PurposeDoctorRegistration]
	if doctor.Max != 7 || doctor.Window != 2*time.Hour {
		t.Fatalf("unexpected doctor limit %+v", doctor)
	}
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is empty")
	}
}

func TestLoadConfig_TokenStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("TOKEN_STORE", "memory")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.TokenStore != TokenStoreMemory {
		t.Fatalf("expected memory token store, got %s", cfg.TokenStore)
	}

	t.Setenv("TOKEN_STORE", "mongo")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown TOKEN_STORE")
	}
}
