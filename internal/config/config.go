package config

import (
	"fmt"
	"net/url"
	"time"
)

// Metadata backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"

	// BackendMemory keeps records in process; for local development only.
	BackendMemory = "memory"
)

// Version strategies.
const (
	VersionStrategyStore   = "store"
	VersionStrategyRedis   = "redis"
	VersionStrategyProcess = "process"
)

// Rate limit backends.
const (
	RateLimitBackendRedis = "redis"
	RateLimitBackendLocal = "local"
)

// Config holds configuration for the control plane.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Storage  StorageConfig  `koanf:"storage"`
	Metadata MetadataConfig `koanf:"metadata"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Postgres PostgresConfig `koanf:"postgres"`
	Redis    RedisConfig    `koanf:"redis"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port               string        `koanf:"port"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute"`
	RateLimitBackend   string        `koanf:"rate_limit_backend"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`

	// ModelsRoot is the only local tree HTTP backup and restore requests
	// may read or write.
	ModelsRoot string `koanf:"models_root"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig holds the API key allow-list and token settings.
type AuthConfig struct {
	ValidAPIKeys []string      `koanf:"valid_api_keys"`
	JWTSecret    string        `koanf:"jwt_secret"`
	TokenTTL     time.Duration `koanf:"token_ttl"`
}

// StorageConfig holds object store settings
type StorageConfig struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UsePathStyle    bool   `koanf:"use_path_style"`

	// BreakerFailures consecutive failures open the circuit breaker for
	// BreakerTimeout; 0 disables the breaker.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// MetadataConfig selects the metadata backend and versioning.
type MetadataConfig struct {
	Backend         string        `koanf:"backend"`
	VersionStrategy string        `koanf:"version_strategy"`
	CacheSize       int           `koanf:"cache_size"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	Host           string        `koanf:"host"`
	Port           string        `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	AuthDB         string        `koanf:"auth_db"`
	Database       string        `koanf:"database"`
	Collection     string        `koanf:"collection"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// URI builds the MongoDB connection string. Credentials are only included
// when both user and password are set.
func (m MongoConfig) URI() string {
	if m.User != "" && m.Password != "" {
		return fmt.Sprintf("mongodb://%s@%s:%s/%s?authSource=%s",
			url.UserPassword(m.User, m.Password).String(),
			m.Host, m.Port, m.AuthDB, url.QueryEscape(m.AuthDB))
	}
	return fmt.Sprintf("mongodb://%s:%s/", m.Host, m.Port)
}

// Validate performs presence checks only.
func (c *Config) Validate() error {
	switch c.Metadata.Backend {
	case BackendMongo, BackendMemory:
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s metadata backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown metadata backend %q", c.Metadata.Backend)
	}

	switch c.Metadata.VersionStrategy {
	case VersionStrategyStore, VersionStrategyProcess:
	case VersionStrategyRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the %s version strategy", VersionStrategyRedis)
		}
	default:
		return fmt.Errorf("unknown version strategy %q", c.Metadata.VersionStrategy)
	}

	if c.Server.ModelsRoot == "" {
		return fmt.Errorf("MODELS_ROOT must not be empty")
	}

	switch c.Server.RateLimitBackend {
	case RateLimitBackendLocal:
	case RateLimitBackendRedis:
		if c.Server.RateLimitPerMinute > 0 && c.Redis.Address == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when RATE_LIMIT_PER_MINUTE is set")
		}
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.Server.RateLimitBackend)
	}
	return nil
}

// UsesRedis reports whether any configured feature needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Metadata.VersionStrategy == VersionStrategyRedis ||
		(c.Server.RateLimitPerMinute > 0 && c.Server.RateLimitBackend == RateLimitBackendRedis)
}
