package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/framecast-server/internal/history"
	"github.com/vovakirdan/framecast-server/internal/ratelimit"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrMissingUserIDKey is returned when no identity secret is configured.
var ErrMissingUserIDKey = errors.New("user_id_key is required")

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	// UserIDKey keys identity derivation. Changing it changes every identity.
	UserIDKey string `mapstructure:"user_id_key" yaml:"user_id_key"`

	History history.Config `mapstructure:"history" yaml:"history"`
	Limits  LimitsConfig   `mapstructure:"limits" yaml:"limits"`

	RedisURL         string        `mapstructure:"redis_url" yaml:"redis_url"`
	FFmpegPath       string        `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	TranscodeTimeout time.Duration `mapstructure:"transcode_timeout" yaml:"transcode_timeout"`

	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

// LimitsConfig configures the connection and message token buckets.
type LimitsConfig struct {
	Backend string           `mapstructure:"backend" yaml:"backend"`
	Connect ratelimit.Config `mapstructure:"connect" yaml:"connect"`
	Message ratelimit.Config `mapstructure:"message" yaml:"message"`
}

// ArchiveConfig enables the SQLite archive when Path is set.
type ArchiveConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   8 << 20,
		History: history.Config{
			Limit:      20,
			Expiry:     10 * time.Minute,
			GainFactor: 1,
		},
		Limits: LimitsConfig{
			Backend: BackendMemory,
			Connect: ratelimit.Config{Rate: 3, Burst: 30, Window: time.Minute},
			Message: ratelimit.Config{Rate: 6, Burst: 18, Window: time.Minute},
		},
		FFmpegPath:       "ffmpeg",
		TranscodeTimeout: 30 * time.Second,
		Archive: ArchiveConfig{
			Concurrency: 4,
		},
	}
}

// Validate reports the first setting that would keep the server from running correctly.
func (c Config) Validate() error {
	if c.UserIDKey == "" {
		return ErrMissingUserIDKey
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	switch c.Limits.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("limits: backend %q needs redis_url", c.Limits.Backend)
		}
	default:
		return fmt.Errorf("limits: unknown backend %q", c.Limits.Backend)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive, got %d", c.MaxMessageBytes)
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
