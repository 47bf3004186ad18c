package server

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/artic-network/peartree/pkg/session"
)

// Backend names accepted in the cache and session sections.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendNull   = "null"
)

// Config holds the server configuration, loaded from a TOML file.
//
// Example:
//
//	addr = ":8080"
//
//	[cache]
//	backend = "redis"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[sessions]
//	backend = "mongo"
//	ttl = "24h"
//
//	[sessions.mongo]
//	uri = "mongodb://localhost:27017"
//	database = "peartree"
type Config struct {
	Addr         string `toml:"addr"`
	MaxTreeBytes int64  `toml:"max_tree_bytes"`

	Cache    CacheConfig   `toml:"cache"`
	Sessions SessionConfig `toml:"sessions"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend string      `toml:"backend"` // file, redis or null
	Dir     string      `toml:"dir"`     // file backend only; empty uses the user cache dir
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// SessionConfig selects and configures the session store.
type SessionConfig struct {
	Backend string      `toml:"backend"` // memory or mongo
	TTL     duration    `toml:"ttl"`
	Mongo   MongoConfig `toml:"mongo"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// duration wraps time.Duration so TOML values like "24h" decode directly.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// DefaultConfig returns a configuration suitable for local use: file cache,
// in-memory sessions, listening on :8080.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		MaxTreeBytes: 64 << 20,
		Cache:        CacheConfig{Backend: BackendFile},
		Sessions: SessionConfig{
			Backend: BackendMemory,
			TTL:     duration(session.DefaultTTL),
		},
	}
}

// LoadConfig reads a TOML configuration file, applying defaults for every
// omitted field. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNull:
	default:
		return fmt.Errorf("invalid cache backend: %q (must be file, redis or null)", c.Cache.Backend)
	}
	switch c.Sessions.Backend {
	case BackendMemory, BackendMongo:
	default:
		return fmt.Errorf("invalid session backend: %q (must be memory or mongo)", c.Sessions.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache backend redis requires cache.redis.addr")
	}
	if c.Sessions.Backend == BackendMongo && c.Sessions.Mongo.URI == "" {
		return fmt.Errorf("session backend mongo requires sessions.mongo.uri")
	}
	return nil
}
