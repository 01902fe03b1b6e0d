package store

import "context"

// Backend is the durable storage the Store sits on. Documents are the flat JSON
// form of a fhir.Resource; the backend never looks inside them beyond the
// resourceType it is handed.
type Backend interface {
	// Insert stores doc under (resourceType, id). ErrAlreadyExists when taken.
	Insert(ctx context.Context, resourceType, id string, doc []byte) error
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, resourceType, id string) ([]byte, error)
	// Scan returns every document of resourceType in a stable order.
	Scan(ctx context.Context, resourceType string) ([][]byte, error)
	// Replace overwrites an existing document or returns ErrNotFound.
	Replace(ctx context.Context, resourceType, id string, doc []byte) error
}

// Locker serializes ingestion runs across processes sharing one backend.
// Reads and writes through the Store are never blocked by it.
type Locker interface {
	// Lock acquires the ingestion lock or returns ErrLocked.
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}
