package storage

import (
	"context"
	"fmt"

	"sarinfer/internal/config"
)

// Backend is an opened metadata store together with the connection that
// owns it.
type Backend struct {
	// Name is the configured backend name.
	Name  string
	Store MetadataStore
	// Mongo is set for the mongo backend
	Mongo *MongoClient
	// DB is set for the postgres backend
	DB *DB

	closers []func(context.Context) error
}

// Health checks the backing database, if any
func (b *Backend) Health(ctx context.Context) error {
	switch {
	case b.Mongo != nil:
		return b.Mongo.Health(ctx)
	case b.DB != nil:
		return b.DB.Health(ctx)
	}
	return nil
}

// BackendStats describes the read cache and connection pool of a backend.
type BackendStats struct {
	Backend string      `json:"backend"`
	Cache   *CacheStats `json:"cache,omitempty"`
	Pool    *DBStats    `json:"pool,omitempty"`
}

// Stats reports cache and pool statistics where the backend has them.
func (b *Backend) Stats() BackendStats {
	stats := BackendStats{Backend: b.Name}
	if cached, ok := b.Store.(*CachedStore); ok {
		cs := cached.Stats()
		stats.Cache = &cs
	}
	if b.DB != nil {
		ps := b.DB.GetStats()
		stats.Pool = &ps
	}
	return stats
}

// Close releases the connection
func (b *Backend) Close(ctx context.Context) error {
	var firstErr error
	for _, c := range b.closers {
		if err := c(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open connects to the configured metadata backend, prepares its schema and
// wraps the store in a read cache when one is configured.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{Name: cfg.Metadata.Backend}

	switch cfg.Metadata.Backend {
	case config.BackendMongo:
		client, err := NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		store := NewMongoStore(client.MetadataCollection())
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		b.Mongo = client
		b.Store = store
		b.closers = append(b.closers, client.Close)

	case config.BackendPostgres:
		db, err := NewDB(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.DB = db
		b.Store = NewPostgresStore(db)
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })

	case config.BackendMemory:
		b.Store = NewMemoryStore()

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Metadata.Backend)
	}

	if cfg.Metadata.CacheSize > 0 && cfg.Metadata.CacheTTL > 0 {
		b.Store = NewCachedStore(b.Store, cfg.Metadata.CacheSize, cfg.Metadata.CacheTTL)
	}
	return b, nil
}
