package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	SeedData      bool
}

// Load parses configuration values from the current process environment.
//
// Every field has a sensible default; values that are present but malformed
// are collected and reported together so an operator sees all mistakes at
// once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:      8080,
		SQLiteDSN:     "file:bookings.db?_foreign_keys=on",
		SessionTTL:    12 * time.Hour,
		SweepInterval: time.Minute,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BOOKINGS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BOOKINGS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("BOOKINGS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("BOOKINGS_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "BOOKINGS_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if intervalValue := strings.TrimSpace(os.Getenv("BOOKINGS_SWEEP_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "BOOKINGS_SWEEP_INTERVAL")
		} else {
			cfg.SweepInterval = interval
		}
	}

	if seedValue := strings.TrimSpace(os.Getenv("BOOKINGS_SEED")); seedValue != "" {
		seed, err := strconv.ParseBool(seedValue)
		if err != nil {
			invalid = append(invalid, "BOOKINGS_SEED")
		} else {
			cfg.SeedData = seed
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
