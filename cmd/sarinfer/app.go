package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"sarinfer/internal/config"
	"sarinfer/internal/registry"
	"sarinfer/internal/storage"
	"sarinfer/internal/transfer"
	"sarinfer/internal/utils"
	"sarinfer/internal/versioning"
)

// app holds the long-lived clients shared by every command.
type app struct {
	cfg     *config.Config
	backend *storage.Backend
	redis   *storage.RedisClient
	breaker *transfer.BreakerStore
	svc     *registry.Service
	logger  *utils.Logger
}

// newApp loads configuration and connects the metadata backend, Redis when
// a feature needs it, and the object store.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.ConfigureLogging(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	logger := utils.NewLogger("sarinfer")

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s metadata backend: %w", cfg.Metadata.Backend, err)
	}
	a := &app{cfg: cfg, backend: backend, logger: logger}

	if cfg.UsesRedis() {
		a.redis, err = storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	sequencer, err := versioning.FromConfig(cfg.Metadata.VersionStrategy, backend, a.redisClient())
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	s3Store, err := transfer.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	var objects transfer.ObjectStore = s3Store
	if cfg.Storage.BreakerFailures > 0 {
		a.breaker = transfer.NewBreakerStore(s3Store, transfer.BreakerConfig{
			FailureThreshold: cfg.Storage.BreakerFailures,
			Timeout:          cfg.Storage.BreakerTimeout,
		})
		objects = a.breaker
	}

	a.svc = registry.NewService(backend.Store, sequencer, transfer.NewManager(objects), cfg.Storage.Bucket)
	logger.Debug("Application initialized",
		"metadata_backend", cfg.Metadata.Backend,
		"version_strategy", cfg.Metadata.VersionStrategy,
		"bucket", cfg.Storage.Bucket)
	return a, nil
}

// redisClient returns nil when no feature needs Redis.
func (a *app) redisClient() *redis.Client {
	if a.redis == nil {
		return nil
	}
	return a.redis.Client()
}

func (a *app) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", "error", err)
		}
	}
	if err := a.backend.Close(ctx); err != nil {
		a.logger.Warn("Failed to close metadata backend", "error", err)
	}
}
