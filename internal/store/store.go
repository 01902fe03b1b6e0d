package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/metrics"
)

// Store persists typed documents by (resourceType, id). It knows nothing about
// the relationships between them and keeps no cache: every call goes to the
// backend.
//
// Updates are last-write-wins. There is no concurrency token, so two updates
// racing on the same key silently keep whichever lands second.
type Store struct {
	backend Backend
	log     zerolog.Logger
	newID   func() string
}

// New creates a Store on top of backend.
func New(backend Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		log:     logger.With().Str("component", "store").Logger(),
		newID:   uuid.NewString,
	}
}

// Create persists r, assigning a fresh id when r.ID is empty.
func (s *Store) Create(ctx context.Context, r fhir.Resource) (fhir.Resource, error) {
	if r.ResourceType == "" {
		return fhir.Resource{}, ErrMissingType
	}
	if r.ID == "" {
		r.ID = s.newID()
	}
	r.Payload = fhir.StripReserved(r.Payload)

	doc, err := json.Marshal(r)
	if err != nil {
		return fhir.Resource{}, fmt.Errorf("encode %s: %w", r.Ref(), err)
	}

	start := time.Now()
	err = s.backend.Insert(ctx, r.ResourceType, r.ID, doc)
	s.record("create", r.ResourceType, start, err)
	if err != nil {
		s.log.Error().Err(err).Str("ref", r.Ref()).Msg("Failed to create resource")
		return fhir.Resource{}, &PersistenceError{Op: "create", ResourceType: r.ResourceType, ID: r.ID, Err: err}
	}

	s.log.Debug().Str("ref", r.Ref()).Msg("Resource created")
	return s.stored(doc, r)
}

// Get returns the resource stored under (resourceType, id), or ErrNotFound.
func (s *Store) Get(ctx context.Context, resourceType, id string) (fhir.Resource, error) {
	start := time.Now()
	doc, err := s.backend.Get(ctx, resourceType, id)
	s.record("get", resourceType, start, err)
	if errors.Is(err, ErrNotFound) {
		return fhir.Resource{}, ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("ref", fhir.NewReference(resourceType, id)).Msg("Failed to get resource")
		return fhir.Resource{}, &PersistenceError{Op: "get", ResourceType: resourceType, ID: id, Err: err}
	}

	r, err := decode(doc)
	if err != nil {
		return fhir.Resource{}, &PersistenceError{Op: "get", ResourceType: resourceType, ID: id, Err: err}
	}
	return s.pin(r, resourceType, id), nil
}

// Update replaces the whole payload of an existing resource. Reserved keys in
// payload are dropped; type and id never change. Missing keys are not upserted.
func (s *Store) Update(ctx context.Context, resourceType, id string, payload map[string]any) (fhir.Resource, error) {
	r := fhir.Resource{
		ResourceType: resourceType,
		ID:           id,
		Payload:      fhir.StripReserved(payload),
	}

	doc, err := json.Marshal(r)
	if err != nil {
		return fhir.Resource{}, fmt.Errorf("encode %s: %w", r.Ref(), err)
	}

	start := time.Now()
	err = s.backend.Replace(ctx, resourceType, id, doc)
	s.record("update", resourceType, start, err)
	if errors.Is(err, ErrNotFound) {
		return fhir.Resource{}, ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("ref", r.Ref()).Msg("Failed to update resource")
		return fhir.Resource{}, &PersistenceError{Op: "update", ResourceType: resourceType, ID: id, Err: err}
	}

	s.log.Debug().Str("ref", r.Ref()).Msg("Resource updated")
	return s.stored(doc, r)
}

// Search scans every resource of resourceType and keeps those matching f.
// No view reads through it; views use SearchStrict so outages surface.
//
// A backend failure yields an empty result: callers cannot tell "no matches"
// from "store unavailable" through Search. Use SearchStrict when they must.
func (s *Store) Search(ctx context.Context, resourceType string, f Filter) []fhir.Resource {
	out, err := s.SearchStrict(ctx, resourceType, f)
	if err != nil {
		metrics.RecordSearchFailure(resourceType)
		s.log.Warn().Err(err).Str("resource_type", resourceType).Msg("Search failed, returning empty result")
		return []fhir.Resource{}
	}
	return out
}

// SearchStrict is Search with backend failures surfaced as *PersistenceError.
func (s *Store) SearchStrict(ctx context.Context, resourceType string, f Filter) ([]fhir.Resource, error) {
	if f == nil {
		f = All()
	}

	start := time.Now()
	docs, err := s.backend.Scan(ctx, resourceType)
	s.record("search", resourceType, start, err)
	if err != nil {
		return nil, &PersistenceError{Op: "search", ResourceType: resourceType, Err: err}
	}

	out := make([]fhir.Resource, 0, len(docs))
	for _, doc := range docs {
		r, err := decode(doc)
		if err != nil {
			s.log.Warn().Err(err).Str("resource_type", resourceType).Msg("Skipping undecodable document")
			continue
		}
		if r.ResourceType != resourceType {
			continue
		}
		if f.Match(r) {
			out = append(out, r)
		}
	}

	s.log.Debug().
		Str("resource_type", resourceType).
		Int("scanned", len(docs)).
		Int("matched", len(out)).
		Msg("Search completed")
	return out, nil
}

// pin makes the returned resource carry the key it was fetched under.
func (s *Store) pin(r fhir.Resource, resourceType, id string) fhir.Resource {
	if r.ResourceType != resourceType || r.ID != id {
		s.log.Warn().
			Str("ref", fhir.NewReference(resourceType, id)).
			Str("stored_ref", r.Ref()).
			Msg("Stored document key mismatch")
	}
	r.ResourceType = resourceType
	r.ID = id
	return r
}

func (s *Store) record(op, resourceType string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.RecordStoreOperation(op, resourceType, status, time.Since(start))
}

// stored returns the document as a later Get will read it back, so callers
// see JSON-normalized payload values rather than their own Go types.
func (s *Store) stored(doc []byte, r fhir.Resource) (fhir.Resource, error) {
	out, err := decode(doc)
	if err != nil {
		return fhir.Resource{}, fmt.Errorf("decode %s: %w", r.Ref(), err)
	}
	return s.pin(out, r.ResourceType, r.ID), nil
}

func decode(doc []byte) (fhir.Resource, error) {
	var r fhir.Resource
	if err := json.Unmarshal(doc, &r); err != nil {
		return fhir.Resource{}, err
	}
	return r, nil
}
