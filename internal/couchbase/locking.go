package couchbase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/store"
)

const (
	lockKey = "_lock/ingest"
	lockTTL = 1 * time.Hour
)

// lockDocuments is the slice of collection operations the locker uses
type lockDocuments interface {
	insert(ctx context.Context, key string, doc any, expiry time.Duration) (gocb.Cas, error)
	remove(ctx context.Context, key string, cas gocb.Cas) error
}

type collectionLockDocuments struct {
	collection *gocb.Collection
}

func (c collectionLockDocuments) insert(ctx context.Context, key string, doc any, expiry time.Duration) (gocb.Cas, error) {
	res, err := c.collection.Insert(key, doc, &gocb.InsertOptions{
		Expiry:  expiry,
		Context: ctx,
	})
	if err != nil {
		return 0, err
	}
	return res.Cas(), nil
}

func (c collectionLockDocuments) remove(ctx context.Context, key string, cas gocb.Cas) error {
	_, err := c.collection.Remove(key, &gocb.RemoveOptions{Cas: cas, Context: ctx})
	return err
}

// IngestionLocker keeps one ingestion run at a time. The lock document is
// inserted with an expiry, so a crashed holder releases it after lockTTL.
// Unlock only removes the document this holder inserted.
type IngestionLocker struct {
	docs   lockDocuments
	holder string
	log    zerolog.Logger

	mu  sync.Mutex
	cas gocb.Cas
}

// NewIngestionLocker creates a locker on the resource collection
func NewIngestionLocker(collection *gocb.Collection, logger zerolog.Logger) *IngestionLocker {
	return newIngestionLocker(collectionLockDocuments{collection: collection}, logger)
}

func newIngestionLocker(docs lockDocuments, logger zerolog.Logger) *IngestionLocker {
	holder, err := os.Hostname()
	if err != nil {
		holder = "clinicportal-ingest"
	}
	return &IngestionLocker{
		docs:   docs,
		holder: holder,
		log:    logger,
	}
}

// Lock acquires the ingestion lock
func (l *IngestionLocker) Lock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cas != 0 {
		return store.ErrLocked
	}

	now := time.Now().UTC()
	lockDoc := map[string]interface{}{
		"lockedAt":  now,
		"lockedBy":  l.holder,
		"expiresAt": now.Add(lockTTL),
	}

	cas, err := l.docs.insert(ctx, lockKey, lockDoc, lockTTL)
	if errors.Is(err, gocb.ErrDocumentExists) {
		return store.ErrLocked
	}
	if err != nil {
		return fmt.Errorf("failed to create lock document: %w", err)
	}

	l.cas = cas
	l.log.Info().Str("holder", l.holder).Msg("Ingestion lock acquired")
	return nil
}

// Unlock releases the ingestion lock. A lock that expired, or that expired and
// was taken by another holder, is left alone and is not an error.
func (l *IngestionLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cas == 0 {
		return nil
	}

	err := l.docs.remove(ctx, lockKey, l.cas)
	switch {
	case errors.Is(err, gocb.ErrDocumentNotFound):
		l.log.Warn().Str("holder", l.holder).Msg("Ingestion lock expired before release")
	case errors.Is(err, gocb.ErrCasMismatch):
		l.log.Warn().Str("holder", l.holder).Msg("Ingestion lock expired and is now held by another process")
	case err != nil:
		return fmt.Errorf("failed to remove lock document: %w", err)
	default:
		l.log.Info().Str("holder", l.holder).Msg("Ingestion lock released")
	}

	l.cas = 0
	return nil
}
