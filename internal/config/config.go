// Package config loads the walletlink server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvRedisURL    = "WALLETLINK_REDIS_URL"
	EnvDatabaseDSN = "WALLETLINK_DATABASE_DSN"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Event transports
const (
	EventsNone        = "none"
	EventsGoChannel   = "gochannel"
	EventsRedisStream = "redisstream"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Nonce     NonceConfig     `yaml:"nonce"`
	Chain     ChainConfig     `yaml:"chain"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Events    EventsConfig    `yaml:"events"`
	Token     TokenConfig     `yaml:"token"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	Mode            string        `yaml:"mode" default:"release" validate:"oneof=debug release test"`
	// Proxies allowed to set X-Forwarded-For. Empty means the TCP peer is the client.
	TrustedProxies []string `yaml:"trusted_proxies" validate:"omitempty,dive,cidr|ip"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// NonceConfig controls how long expired nonces are kept so that late
// verifications report expiry
type NonceConfig struct {
	Retention       time.Duration `yaml:"retention" default:"10m" validate:"gt=0"`
	JanitorInterval time.Duration `yaml:"janitor_interval" default:"1m" validate:"gt=0"`
}

// ChainConfig describes the network wallet links are recorded against
type ChainConfig struct {
	ID uint64 `yaml:"id" default:"56" validate:"gt=0"`
}

// StoreConfig selects the persistence backend for nonces and users
type StoreConfig struct {
	Nonces string `yaml:"nonces" default:"memory" validate:"oneof=memory redis postgres"`
	Users  string `yaml:"users" default:"memory" validate:"oneof=memory postgres"`
}

// RedisConfig contains redis connection settings
type RedisConfig struct {
	URL string `yaml:"url" default:"redis://localhost:6379/0"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// EventsConfig selects where wallet link events are published
type EventsConfig struct {
	Driver string `yaml:"driver" default:"none" validate:"oneof=none gochannel redisstream"`
	Topic  string `yaml:"topic" default:"walletlink.wallet_linked" validate:"required"`
}

// TokenConfig controls session token issuance
type TokenConfig struct {
	Enabled bool          `yaml:"enabled" default:"true"`
	KeyPath string        `yaml:"key_path"`
	TTL     time.Duration `yaml:"ttl" default:"15m" validate:"gt=0"`
}

// RateLimitConfig is the per-client token bucket for nonce requests
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" default:"true"`
	RPS     float64       `yaml:"rps" default:"1" validate:"gt=0"`
	Burst   int           `yaml:"burst" default:"5" validate:"gt=0"`
	IdleTTL time.Duration `yaml:"idle_ttl" default:"10m" validate:"gt=0"`
}

// Default returns a configuration populated from struct defaults only
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
}

// Validate checks field constraints and cross-section requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.UsesPostgres() && c.Database.DSN == "" {
		return errors.New("database.dsn is required when a postgres store is selected")
	}
	if c.UsesRedis() && c.Redis.URL == "" {
		return errors.New("redis.url is required when redis is used")
	}
	return nil
}

// UsesPostgres reports whether any store is backed by postgres
func (c *Config) UsesPostgres() bool {
	return c.Store.Nonces == BackendPostgres || c.Store.Users == BackendPostgres
}

// UsesRedis reports whether the nonce store or the event transport needs redis
func (c *Config) UsesRedis() bool {
	return c.Store.Nonces == BackendRedis || c.Events.Driver == EventsRedisStream
}
