package resolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/metrics"
	"stealthcompany.com/clinicportal/internal/store"
)

// Display fallbacks for references that cannot be followed.
const (
	UnknownPatient = "Unknown Patient"
	UnknownDoctor  = "Unknown Doctor"
	NotAvailable   = "N/A"
)

// Getter is the single store read the resolver needs.
type Getter interface {
	Get(ctx context.Context, resourceType, id string) (fhir.Resource, error)
}

// Resolver dereferences "Type/id" strings against the store. Malformed and
// dangling references collapse into one unresolved outcome so callers can
// substitute a fallback instead of failing the whole view.
type Resolver struct {
	store Getter
	log   zerolog.Logger
}

// New creates a Resolver reading through store.
func New(store Getter, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve follows ref. ok is false when ref is malformed or points at nothing;
// err is set only when the backend itself failed.
func (r *Resolver) Resolve(ctx context.Context, ref string) (fhir.Resource, bool, error) {
	parsed, err := fhir.ParseReference(ref)
	if err != nil {
		metrics.RecordUnresolvedReference("malformed")
		r.log.Debug().Str("ref", ref).Msg("Malformed reference")
		return fhir.Resource{}, false, nil
	}

	res, err := r.store.Get(ctx, parsed.Type, parsed.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		metrics.RecordUnresolvedReference("dangling")
		r.log.Debug().Str("ref", ref).Msg("Dangling reference")
		return fhir.Resource{}, false, nil
	case err != nil:
		return fhir.Resource{}, false, err
	}
	return res, true, nil
}

// DisplayName returns the name of the resource behind ref, or fallback when
// it cannot be resolved or carries no name.
func (r *Resolver) DisplayName(ctx context.Context, ref, fallback string) (string, error) {
	res, ok, err := r.Resolve(ctx, ref)
	if err != nil || !ok {
		return fallback, err
	}
	if name := fhir.DisplayName(res); name != "" {
		return name, nil
	}
	return fallback, nil
}

// FindParticipant returns the first participant reference of roleType, e.g.
// "Patient". Participants with malformed references are skipped.
func FindParticipant(a fhir.Appointment, roleType string) (string, bool) {
	for _, p := range a.Participants {
		parsed, err := fhir.ParseReference(p.Actor)
		if err != nil {
			continue
		}
		if parsed.Type == roleType {
			return p.Actor, true
		}
	}
	return "", false
}
