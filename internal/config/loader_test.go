package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BOOKINGS_HTTP_PORT", "BOOKINGS_SQLITE_DSN", "BOOKINGS_SESSION_TTL", "BOOKINGS_SWEEP_INTERVAL", "BOOKINGS_SEED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:bookings.db?_foreign_keys=on" {
		t.Errorf("SQLiteDSN = %q", cfg.SQLiteDSN)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.SessionTTL)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", cfg.SweepInterval)
	}
	if cfg.SeedData {
		t.Error("SeedData defaults to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOOKINGS_HTTP_PORT", "9090")
	t.Setenv("BOOKINGS_SQLITE_DSN", "file::memory:?cache=shared")
	t.Setenv("BOOKINGS_SESSION_TTL", "30m")
	t.Setenv("BOOKINGS_SWEEP_INTERVAL", "15s")
	t.Setenv("BOOKINGS_SEED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file::memory:?cache=shared" {
		t.Errorf("SQLiteDSN = %q", cfg.SQLiteDSN)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.SweepInterval != 15*time.Second {
		t.Errorf("SweepInterval = %v, want 15s", cfg.SweepInterval)
	}
	if !cfg.SeedData {
		t.Error("SeedData = false, want true")
	}
}

func TestLoadReportsEveryInvalidValue(t *testing.T) {
	t.Setenv("BOOKINGS_HTTP_PORT", "-1")
	t.Setenv("BOOKINGS_SESSION_TTL", "soon")
	t.Setenv("BOOKINGS_SWEEP_INTERVAL", "0s")

	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded with invalid values")
	}
	for _, key := range []string{"BOOKINGS_HTTP_PORT", "BOOKINGS_SESSION_TTL", "BOOKINGS_SWEEP_INTERVAL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}
