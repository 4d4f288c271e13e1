package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "PINMAIL_"

// parseEnv overlays PINMAIL_* variables. Binaries call godotenv.Load first,
// so a local .env file ends up here too.
func parseEnv(c *Config) error {
	envString("HTTP_ADDR", &c.HTTPAddr)
	envString("GRPC_ADDR", &c.GRPCAddr)
	envString("DATABASE_DRIVER", &c.DatabaseDriver)
	envString("DATABASE_DSN", &c.DatabaseDSN)
	envString("SECRET_KEY", &c.SecretKey)
	envString("SESSION_BACKEND", &c.SessionBackend)
	envString("REDIS_URL", &c.RedisURL)
	envString("LOG_FORMAT", &c.LogFormat)
	envString("LOG_LEVEL", &c.LogLevel)

	if err := envDuration("SESSION_TTL", &c.SessionTTL); err != nil {
		return err
	}
	if err := envDuration("SECRET_IDLE_TIMEOUT", &c.SecretIdleTimeout); err != nil {
		return err
	}
	if err := envInt("SECRET_CACHE_CAPACITY", &c.SecretCacheCapacity); err != nil {
		return err
	}
	if err := envInt("PIN_ATTEMPTS_PER_MINUTE", &c.PinAttemptsPerMinute); err != nil {
		return err
	}
	if err := envInt("PIN_ATTEMPT_BURST", &c.PinAttemptBurst); err != nil {
		return err
	}

	kdfTime, kdfMem, kdfThreads := int(c.KDFTime), int(c.KDFMemoryKiB), int(c.KDFThreads)
	if err := envInt("KDF_TIME", &kdfTime); err != nil {
		return err
	}
	if err := envInt("KDF_MEMORY_KIB", &kdfMem); err != nil {
		return err
	}
	if err := envInt("KDF_THREADS", &kdfThreads); err != nil {
		return err
	}
	c.KDFTime, c.KDFMemoryKiB, c.KDFThreads = uint32(kdfTime), uint32(kdfMem), uint8(kdfThreads)

	return nil
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) error {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = d
	return nil
}
