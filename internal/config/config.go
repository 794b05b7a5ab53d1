// Package config assembles runtime settings from defaults, environment
// variables, and command-line flags, in that order.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr      string
	PublicDir string

	// StoreDriver selects the persistence backend: "json" (atomic
	// snapshot file) or "sqlite". StoreDSN is the file path, or a
	// sqlite DSN such as ":memory:".
	StoreDriver string
	StoreDSN    string

	SessionTTL    time.Duration
	LoginWindow   time.Duration
	LoginLimit    int
	MessageWindow time.Duration
	MessageLimit  int
	Retention     int
	Heartbeat     time.Duration
	MaxBodyBytes  int64
}

func Default() Config {
	return Config{
		Addr:          ":3000",
		PublicDir:     "public",
		StoreDriver:   "json",
		StoreDSN:      "messenger.json",
		SessionTTL:    7 * 24 * time.Hour,
		LoginWindow:   5 * time.Minute,
		LoginLimit:    20,
		MessageWindow: time.Minute,
		MessageLimit:  60,
		Retention:     1000,
		Heartbeat:     15 * time.Second,
		MaxBodyBytes:  32 << 10,
	}
}

// Load builds the configuration: defaults, then environment, then flags.
func Load() Config {
	cfg := Default()

	cfg.Addr = envString("ADDR", cfg.Addr)
	cfg.PublicDir = envString("PUBLIC_DIR", cfg.PublicDir)
	cfg.StoreDriver = envString("STORE_DRIVER", cfg.StoreDriver)
	cfg.StoreDSN = envString("STORE_DSN", cfg.StoreDSN)
	cfg.SessionTTL = envDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.LoginWindow = envDuration("LOGIN_WINDOW", cfg.LoginWindow)
	cfg.LoginLimit = envInt("LOGIN_LIMIT", cfg.LoginLimit)
	cfg.MessageWindow = envDuration("MESSAGE_WINDOW", cfg.MessageWindow)
	cfg.MessageLimit = envInt("MESSAGE_LIMIT", cfg.MessageLimit)
	cfg.Retention = envInt("RETENTION_CAP", cfg.Retention)
	cfg.Heartbeat = envDuration("HEARTBEAT_INTERVAL", cfg.Heartbeat)

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "http service address")
	flag.StringVar(&cfg.PublicDir, "public", cfg.PublicDir, "static assets directory")
	flag.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "storage backend: json or sqlite")
	flag.StringVar(&cfg.StoreDSN, "dsn", cfg.StoreDSN, "storage file path or sqlite DSN")
	flag.Parse()

	return cfg
}

func envString(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
