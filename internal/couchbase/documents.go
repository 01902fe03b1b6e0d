package couchbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchbase/gocb/v2"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/store"
)

// DocumentManager handles resource document operations on one collection
type DocumentManager struct {
	scope      *gocb.Scope
	collection *gocb.Collection
	transcoder gocb.Transcoder
}

// NewDocumentManager creates a new document manager
func NewDocumentManager(scope *gocb.Scope, collection *gocb.Collection) *DocumentManager {
	return &DocumentManager{
		scope:      scope,
		collection: collection,
		transcoder: gocb.NewRawJSONTranscoder(),
	}
}

// documentKey is the KV key of a resource: its reference string.
func documentKey(resourceType, id string) string {
	return fhir.NewReference(resourceType, id)
}

// Insert stores a new document, failing with store.ErrAlreadyExists on a taken key
func (dm *DocumentManager) Insert(ctx context.Context, resourceType, id string, doc []byte) error {
	key := documentKey(resourceType, id)
	_, err := dm.collection.Insert(key, doc, &gocb.InsertOptions{
		Transcoder: dm.transcoder,
		Context:    ctx,
	})
	if errors.Is(err, gocb.ErrDocumentExists) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", key, err)
	}
	return nil
}

// Get retrieves a document, failing with store.ErrNotFound when absent
func (dm *DocumentManager) Get(ctx context.Context, resourceType, id string) ([]byte, error) {
	key := documentKey(resourceType, id)
	result, err := dm.collection.Get(key, &gocb.GetOptions{
		Transcoder: dm.transcoder,
		Context:    ctx,
	})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}

	var doc []byte
	if err := result.Content(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document content: %w", err)
	}
	return doc, nil
}

// Replace overwrites an existing document, failing with store.ErrNotFound when absent
func (dm *DocumentManager) Replace(ctx context.Context, resourceType, id string, doc []byte) error {
	key := documentKey(resourceType, id)
	_, err := dm.collection.Replace(key, doc, &gocb.ReplaceOptions{
		Transcoder: dm.transcoder,
		Context:    ctx,
	})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to replace document %s: %w", key, err)
	}
	return nil
}

// Scan returns every document of resourceType ordered by key. Request-plus
// consistency makes writes acknowledged before the query visible to it.
func (dm *DocumentManager) Scan(ctx context.Context, resourceType string) ([][]byte, error) {
	statement := fmt.Sprintf(
		"SELECT RAW d FROM `%s` AS d WHERE d.resourceType = $1 ORDER BY META(d).id",
		dm.collection.Name(),
	)

	result, err := dm.scope.Query(statement, &gocb.QueryOptions{
		PositionalParameters: []interface{}{resourceType},
		ScanConsistency:      gocb.QueryScanConsistencyRequestPlus,
		Context:              ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s documents: %w", resourceType, err)
	}
	defer result.Close()

	var docs [][]byte
	for result.Next() {
		var row json.RawMessage
		if err := result.Row(&row); err != nil {
			return nil, fmt.Errorf("failed to read %s row: %w", resourceType, err)
		}
		docs = append(docs, []byte(row))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s documents: %w", resourceType, err)
	}
	return docs, nil
}
