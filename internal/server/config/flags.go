package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/pinmail/internal/flagx"
)

var flagNames = []string{
	"-http-addr", "-grpc-addr", "-db-driver", "-d", "-s", "-session-backend",
	"-redis-url", "-session-ttl", "-secret-idle-timeout", "-secret-cache-capacity",
	"-pin-rate", "-pin-burst", "-log-format", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-http-addr string              HTTP bind address
//	-grpc-addr string              gRPC health bind address
//	-db-driver string              pgx | sqlite
//	-d string                      database DSN
//	-s string                      JWT HMAC secret key
//	-session-backend string        memory | redis
//	-redis-url string              redis URL for sessions and events
//	-session-ttl duration          session state lifetime
//	-secret-idle-timeout duration  idle timeout for cached unlock passwords
//	-secret-cache-capacity int     max cached unlock passwords
//	-pin-rate int                  PIN attempts per minute per user
//	-pin-burst int                 PIN attempt burst
//	-log-format string             text | json | zerolog
//	-log-level string              debug | info | warn | error
//
// Args are filtered with flagx.FilterArgs first so -c/-config and flags
// owned by other components do not break parsing.
func parseFlags(c *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP bind address")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC health bind address")
	fs.StringVar(&c.DatabaseDriver, "db-driver", c.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.SecretKey, "s", c.SecretKey, "secret key")
	fs.StringVar(&c.SessionBackend, "session-backend", c.SessionBackend, "session backend (memory|redis)")
	fs.StringVar(&c.RedisURL, "redis-url", c.RedisURL, "redis URL")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "session lifetime")
	fs.DurationVar(&c.SecretIdleTimeout, "secret-idle-timeout", c.SecretIdleTimeout, "unlock password idle timeout")
	fs.IntVar(&c.SecretCacheCapacity, "secret-cache-capacity", c.SecretCacheCapacity, "max cached unlock passwords")
	fs.IntVar(&c.PinAttemptsPerMinute, "pin-rate", c.PinAttemptsPerMinute, "PIN attempts per minute")
	fs.IntVar(&c.PinAttemptBurst, "pin-burst", c.PinAttemptBurst, "PIN attempt burst")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format (text|json|zerolog)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, flagNames))
}
