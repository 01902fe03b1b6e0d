// Package views composes denormalized read models out of stored resources.
// Nothing here is persisted; every call recomputes from the store.
package views

import (
	"context"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/resolver"
	"stealthcompany.com/clinicportal/internal/store"
)

// maxParallelReads bounds the concurrent store reads issued by one view.
const maxParallelReads = 8

// Reader is the store surface views depend on.
type Reader interface {
	Get(ctx context.Context, resourceType, id string) (fhir.Resource, error)
	SearchStrict(ctx context.Context, resourceType string, f store.Filter) ([]fhir.Resource, error)
}

// Synthesizer builds views. It holds no state between calls.
type Synthesizer struct {
	store    Reader
	resolver *resolver.Resolver
	log      zerolog.Logger
}

// NewSynthesizer creates a Synthesizer. Reference resolution goes through the
// same reader.
func NewSynthesizer(reader Reader, logger zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		store:    reader,
		resolver: resolver.New(reader, logger),
		log:      logger.With().Str("component", "views").Logger(),
	}
}
