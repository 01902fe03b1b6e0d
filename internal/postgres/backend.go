package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stealthcompany.com/clinicportal/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS clinical_resources (
    resource_type TEXT NOT NULL,
    id            TEXT NOT NULL,
    document      JSONB NOT NULL,
    seq           BIGSERIAL,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (resource_type, id)
);
CREATE INDEX IF NOT EXISTS clinical_resources_type_seq ON clinical_resources (resource_type, seq)`

// Backend is the PostgreSQL store.Backend. Every resource lives in one JSONB
// table keyed by (resource_type, id); scans follow insertion order.
type Backend struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Backend)(nil)

// NewBackend wraps an open pool.
func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// EnsureSchema creates the resource table when missing.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create clinical_resources table: %w", err)
	}
	return nil
}

// Ping checks the pool can reach the database.
func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *Backend) Insert(ctx context.Context, resourceType, id string, doc []byte) error {
	tag, err := b.pool.Exec(ctx,
		`INSERT INTO clinical_resources (resource_type, id, document)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (resource_type, id) DO NOTHING`,
		resourceType, id, string(doc))
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", resourceType, id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, resourceType, id string) ([]byte, error) {
	var doc []byte
	err := b.pool.QueryRow(ctx,
		`SELECT document::text FROM clinical_resources WHERE resource_type = $1 AND id = $2`,
		resourceType, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", resourceType, id, err)
	}
	return doc, nil
}

func (b *Backend) Scan(ctx context.Context, resourceType string) ([][]byte, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT document::text FROM clinical_resources WHERE resource_type = $1 ORDER BY seq`,
		resourceType)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", resourceType, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", resourceType, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", resourceType, err)
	}
	return docs, nil
}

func (b *Backend) Replace(ctx context.Context, resourceType, id string, doc []byte) error {
	tag, err := b.pool.Exec(ctx,
		`UPDATE clinical_resources SET document = $3::jsonb, updated_at = NOW()
		 WHERE resource_type = $1 AND id = $2`,
		resourceType, id, string(doc))
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", resourceType, id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
