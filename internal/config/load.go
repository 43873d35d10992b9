package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"sarinfer.yaml",
	"sarinfer.yml",
	"/etc/sarinfer/config.yaml",
}

// envMappings maps the flat environment names to config paths. Variables
// not listed here are ignored.
var envMappings = map[string]string{
	"HTTP_PORT":             "server.port",
	"RATE_LIMIT_PER_MINUTE": "server.rate_limit_per_minute",
	"RATE_LIMIT_BACKEND":    "server.rate_limit_backend",
	"SHUTDOWN_TIMEOUT":      "server.shutdown_timeout",
	"MODELS_ROOT":           "server.models_root",

	"LOG_LEVEL":  "log.level",
	"LOG_FORMAT": "log.format",

	"VALID_API_KEYS": "auth.valid_api_keys",
	"JWT_SECRET":     "auth.jwt_secret",
	"JWT_TTL":        "auth.token_ttl",

	"S3_BUCKET_NAME":        "storage.bucket",
	"AWS_REGION":            "storage.region",
	"S3_ENDPOINT_URL":       "storage.endpoint",
	"AWS_ACCESS_KEY_ID":     "storage.access_key_id",
	"AWS_SECRET_ACCESS_KEY": "storage.secret_access_key",
	"S3_USE_PATH_STYLE":     "storage.use_path_style",
	"S3_BREAKER_FAILURES":   "storage.breaker_failures",
	"S3_BREAKER_TIMEOUT":    "storage.breaker_timeout",

	"METADATA_BACKEND":    "metadata.backend",
	"VERSION_STRATEGY":    "metadata.version_strategy",
	"METADATA_CACHE_SIZE": "metadata.cache_size",
	"METADATA_CACHE_TTL":  "metadata.cache_ttl",

	"MONGO_HOST":            "mongo.host",
	"MONGO_PORT":            "mongo.port",
	"MONGO_USER":            "mongo.user",
	"MONGO_PASSWORD":        "mongo.password",
	"MONGO_AUTH_DB":         "mongo.auth_db",
	"MONGO_DB_NAME":         "mongo.database",
	"MONGO_COLLECTION":      "mongo.collection",
	"MONGO_CONNECT_TIMEOUT": "mongo.connect_timeout",

	"DATABASE_URL":         "postgres.url",
	"DB_MAX_OPEN_CONNS":    "postgres.max_open_conns",
	"DB_MAX_IDLE_CONNS":    "postgres.max_idle_conns",
	"DB_CONN_MAX_LIFETIME": "postgres.conn_max_lifetime",

	"REDIS_ADDRESS":  "redis.address",
	"REDIS_PASSWORD": "redis.password",
	"REDIS_DB":       "redis.db",
}

// sliceConfigPaths are parsed from comma-separated strings.
var sliceConfigPaths = []string{
	"auth.valid_api_keys",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			RateLimitPerMinute: 0,
			RateLimitBackend:   RateLimitBackendRedis,
			ShutdownTimeout:    30 * time.Second,
			ModelsRoot:         "/var/lib/sarinfer/models",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Auth: AuthConfig{
			ValidAPIKeys: []string{},
			JWTSecret:    "",
			TokenTTL:     15 * time.Minute,
		},
		Storage: StorageConfig{
			Bucket:       "",
			Region:       "us-east-1",
			Endpoint:     "http://127.0.0.1:9000",
			UsePathStyle: true,

			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Metadata: MetadataConfig{
			Backend:         BackendMongo,
			VersionStrategy: VersionStrategyStore,
			CacheSize:       500,
			CacheTTL:        time.Minute,
		},
		Mongo: MongoConfig{
			Host:           "localhost",
			Port:           "27017",
			AuthDB:         "admin",
			Database:       "sarinfer_db",
			Collection:     "model_metadata",
			ConnectTimeout: 10 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
	}
}

// Load reads configuration in three layers: defaults, an optional YAML
// file, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envTransform(key string) string {
	return envMappings[key]
}

// processSliceFields splits comma-separated strings coming from the
// environment. Blank entries are dropped.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}
		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
