package couchbase

import (
	"context"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/store"
)

// Client is the Couchbase store.Backend. It orchestrates the connection,
// document and locking managers.
type Client struct {
	connManager *ConnectionManager
	docManager  *DocumentManager
	locker      *IngestionLocker
}

var (
	_ store.Backend = (*Client)(nil)
	_ store.Locker  = (*IngestionLocker)(nil)
)

// NewClient connects and prepares the keyspace
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("component", "couchbase").Logger()

	connManager, err := NewConnectionManager(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := connManager.EnsureIndexes(); err != nil {
		connManager.Close()
		return nil, err
	}

	return &Client{
		connManager: connManager,
		docManager:  NewDocumentManager(connManager.Scope(), connManager.Collection()),
		locker:      NewIngestionLocker(connManager.Collection(), logger),
	}, nil
}

// Close closes the Couchbase connection
func (c *Client) Close() error {
	return c.connManager.Close()
}

// Ping checks the cluster is reachable
func (c *Client) Ping(_ context.Context) error {
	return c.connManager.Ping()
}

// Locker returns the ingestion locker
func (c *Client) Locker() *IngestionLocker {
	return c.locker
}

func (c *Client) Insert(ctx context.Context, resourceType, id string, doc []byte) error {
	return c.docManager.Insert(ctx, resourceType, id, doc)
}

func (c *Client) Get(ctx context.Context, resourceType, id string) ([]byte, error) {
	return c.docManager.Get(ctx, resourceType, id)
}

func (c *Client) Scan(ctx context.Context, resourceType string) ([][]byte, error) {
	return c.docManager.Scan(ctx, resourceType)
}

func (c *Client) Replace(ctx context.Context, resourceType, id string, doc []byte) error {
	return c.docManager.Replace(ctx, resourceType, id, doc)
}
