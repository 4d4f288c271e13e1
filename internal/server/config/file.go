package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/pinmail/internal/flagx"
	"github.com/dmitrijs2005/pinmail/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Durations accept both "90s"
// style strings and integer nanoseconds. Zero values leave the current
// setting untouched.
type FileConfig struct {
	HTTPAddr             string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr             string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDriver       string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN          string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey            string         `json:"secret_key" yaml:"secret_key"`
	SessionBackend       string         `json:"session_backend" yaml:"session_backend"`
	RedisURL             string         `json:"redis_url" yaml:"redis_url"`
	SessionTTL           timex.Duration `json:"session_ttl" yaml:"session_ttl"`
	SecretCacheCapacity  int            `json:"secret_cache_capacity" yaml:"secret_cache_capacity"`
	SecretIdleTimeout    timex.Duration `json:"secret_idle_timeout" yaml:"secret_idle_timeout"`
	PinAttemptsPerMinute int            `json:"pin_attempts_per_minute" yaml:"pin_attempts_per_minute"`
	PinAttemptBurst      int            `json:"pin_attempt_burst" yaml:"pin_attempt_burst"`
	KDFTime              uint32         `json:"kdf_time" yaml:"kdf_time"`
	KDFMemoryKiB         uint32         `json:"kdf_memory_kib" yaml:"kdf_memory_kib"`
	KDFThreads           uint8          `json:"kdf_threads" yaml:"kdf_threads"`
	LogFormat            string         `json:"log_format" yaml:"log_format"`
	LogLevel             string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the file named by -c/-config onto config. The format
// is picked by extension: .yaml/.yml use YAML, everything else JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCAddr, fc.GRPCAddr)
	setString(&c.DatabaseDriver, fc.DatabaseDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.SessionBackend, fc.SessionBackend)
	setString(&c.RedisURL, fc.RedisURL)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.LogLevel, fc.LogLevel)

	if fc.SessionTTL.Duration > 0 {
		c.SessionTTL = fc.SessionTTL.Duration
	}
	if fc.SecretIdleTimeout.Duration > 0 {
		c.SecretIdleTimeout = fc.SecretIdleTimeout.Duration
	}
	if fc.SecretCacheCapacity > 0 {
		c.SecretCacheCapacity = fc.SecretCacheCapacity
	}
	if fc.PinAttemptsPerMinute > 0 {
		c.PinAttemptsPerMinute = fc.PinAttemptsPerMinute
	}
	if fc.PinAttemptBurst > 0 {
		c.PinAttemptBurst = fc.PinAttemptBurst
	}
	if fc.KDFTime > 0 {
		c.KDFTime = fc.KDFTime
	}
	if fc.KDFMemoryKiB > 0 {
		c.KDFMemoryKiB = fc.KDFMemoryKiB
	}
	if fc.KDFThreads > 0 {
		c.KDFThreads = fc.KDFThreads
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
