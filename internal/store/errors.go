package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the well-defined "no such (resourceType, id)" outcome.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned by backends when an insert hits a taken key.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrMissingType rejects a resource without a resourceType before any write.
	ErrMissingType = errors.New("resource type is required")

	// ErrLocked means another process holds the ingestion lock.
	ErrLocked = errors.New("ingestion lock is held by another process")
)

// PersistenceError means the durable backend rejected a read or a write.
type PersistenceError struct {
	Op           string
	ResourceType string
	ID           string
	Err          error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ResourceType, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.ResourceType, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err carries a *PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
