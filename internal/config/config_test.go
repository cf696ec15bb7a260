package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("GUEST_MAX_AGE", "")
	t.Setenv("TOKEN_ENTROPY", "")

	cfg := Load()
	if cfg.GuestMaxAge != 30*time.Second {
		t.Fatalf("GuestMaxAge=%s, want 30s", cfg.GuestMaxAge)
	}
	if cfg.TokenEntropy != 8 {
		t.Fatalf("TokenEntropy=%d, want 8", cfg.TokenEntropy)
	}
	if cfg.SessionIDLength != 255 {
		t.Fatalf("SessionIDLength=%d, want 255", cfg.SessionIDLength)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("IsDevelopment()=true for ENV=test")
	}
}

func TestLoad_DurationsAcceptSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("GUEST_MAX_AGE", "45")
	t.Setenv("PULL_TIMEOUT", "1m")
	t.Setenv("SWEEP_INTERVAL", "garbage")

	cfg := Load()
	if cfg.GuestMaxAge != 45*time.Second {
		t.Fatalf("GuestMaxAge=%s, want 45s", cfg.GuestMaxAge)
	}
	if cfg.PullTimeout != time.Minute {
		t.Fatalf("PullTimeout=%s, want 1m", cfg.PullTimeout)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Fatalf("SweepInterval=%s, want default 30s", cfg.SweepInterval)
	}
}

func TestLoad_AllowedOriginsTrimmed(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins=%v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[0] != "https://a.example" || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins=%v", cfg.AllowedOrigins)
	}
}
