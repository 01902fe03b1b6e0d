package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/config"
	"stealthcompany.com/clinicportal/internal/couchbase"
	"stealthcompany.com/clinicportal/internal/postgres"
	"stealthcompany.com/clinicportal/internal/store"
)

// Opened is a connected storage backend with its companions.
type Opened struct {
	Backend store.Backend
	// Locker is nil for the memory backend, which is never shared between processes.
	Locker store.Locker
	// Pinger is nil when the backend has no remote side to check.
	Pinger interface {
		Ping(ctx context.Context) error
	}
	Close func() error
}

// Open connects the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Opened, error) {
	switch cfg.StoreBackend {
	case config.BackendCouchbase:
		client, err := couchbase.NewClient(couchbase.Config{
			URL:        cfg.CouchbaseURL,
			Username:   cfg.CouchbaseUsername,
			Password:   cfg.CouchbasePassword,
			Bucket:     cfg.CouchbaseBucket,
			Scope:      cfg.CouchbaseScope,
			Collection: cfg.CouchbaseCollection,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Couchbase: %w", err)
		}
		return &Opened{
			Backend: client,
			Locker:  client.Locker(),
			Pinger:  client,
			Close:   client.Close,
		}, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		pg := postgres.NewBackend(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to prepare schema: %w", err)
		}
		logger.Info().Msg("Connected to Postgres")
		return &Opened{
			Backend: pg,
			Locker:  postgres.NewAdvisoryLocker(pool, logger.With().Str("component", "postgres").Logger()),
			Pinger:  pg,
			Close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case config.BackendMemory:
		logger.Warn().Msg("Using in-memory store, data is lost on restart")
		return &Opened{
			Backend: store.NewMemoryBackend(),
			Close:   func() error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
