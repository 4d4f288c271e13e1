// Package config handles configuration for the pinmail server,
// including defaults, a JSON or YAML file overlay, environment variables
// and command-line flags.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the pinmail server.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses for the web surface and the gRPC health endpoint.
//   - DatabaseDriver: "pgx" (PostgreSQL) or "sqlite".
//   - SecretKey: HMAC secret for verifying session JWTs (HS256). Do not use test defaults in prod.
//   - SessionBackend: "memory" or "redis"; RedisURL is used by the latter and by the event bus.
//   - SecretCacheCapacity / SecretIdleTimeout: bounds on unlock passwords held in memory.
//   - PinAttemptsPerMinute / PinAttemptBurst: PIN attempt limiter per user.
//   - KDF*: Argon2id parameters; they must match the ones used when keys were sealed.
type Config struct {
	HTTPAddr             string
	GRPCAddr             string
	DatabaseDriver       string
	DatabaseDSN          string
	SecretKey            string
	SessionBackend       string
	RedisURL             string
	SessionTTL           time.Duration
	SecretCacheCapacity  int
	SecretIdleTimeout    time.Duration
	PinAttemptsPerMinute int
	PinAttemptBurst      int
	KDFTime              uint32
	KDFMemoryKiB         uint32
	KDFThreads           uint8
	LogFormat            string
	LogLevel             string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:pinmail.db?_pragma=foreign_keys(1)"
	c.SecretKey = "secretKey"
	c.SessionBackend = "memory"
	c.RedisURL = "redis://127.0.0.1:6379/0"
	c.SessionTTL = 24 * time.Hour
	c.SecretCacheCapacity = 10000
	c.SecretIdleTimeout = 30 * time.Minute
	c.PinAttemptsPerMinute = 5
	c.PinAttemptBurst = 5
	c.KDFTime = 1
	c.KDFMemoryKiB = 64 * 1024
	c.KDFThreads = 4
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	switch c.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported session backend %q", c.SessionBackend)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key must not be empty")
	}
	if c.SecretCacheCapacity <= 0 {
		return fmt.Errorf("secret cache capacity must be positive")
	}
	if c.PinAttemptsPerMinute <= 0 || c.PinAttemptBurst <= 0 {
		return fmt.Errorf("pin attempt limits must be positive")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally from
// command-line flags. args are the program arguments without the binary name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
