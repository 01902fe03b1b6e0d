package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/store"
)

type brokenGetter struct{}

func (brokenGetter) Get(_ context.Context, resourceType, id string) (fhir.Resource, error) {
	return fhir.Resource{}, &store.PersistenceError{Op: "get", ResourceType: resourceType, ID: id, Err: errors.New("timeout")}
}

func seededResolver(t *testing.T) *Resolver {
	t.Helper()
	s := store.New(store.NewMemoryBackend(), zerolog.Nop())
	_, err := s.Create(context.Background(), fhir.Resource{
		ResourceType: fhir.TypePatient,
		ID:           "p1",
		Payload: map[string]any{
			"name": []any{map[string]any{"given": []any{"Maria"}, "family": "Lopes"}},
		},
	})
	require.NoError(t, err)
	_, err = s.Create(context.Background(), fhir.Resource{
		ResourceType: fhir.TypePractitioner,
		ID:           "nameless",
		Payload:      map[string]any{},
	})
	require.NoError(t, err)
	return New(s, zerolog.Nop())
}

func TestResolve(t *testing.T) {
	r := seededResolver(t)
	ctx := context.Background()

	res, ok, err := r.Resolve(ctx, "Patient/p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p1", res.ID)

	tests := []string{"Patient/missing", "Patient", "", "Patient/p1/extra", " Patient/p1", "patient/p1"}
	for _, ref := range tests {
		t.Run("unresolved "+ref, func(t *testing.T) {
			_, ok, err := r.Resolve(ctx, ref)
			assert.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestResolvePropagatesPersistenceError(t *testing.T) {
	r := New(brokenGetter{}, zerolog.Nop())

	_, ok, err := r.Resolve(context.Background(), "Patient/p1")
	assert.False(t, ok)
	assert.True(t, store.IsPersistence(err))

	name, err := r.DisplayName(context.Background(), "Patient/p1", UnknownPatient)
	assert.Error(t, err)
	assert.Equal(t, UnknownPatient, name)
}

func TestDisplayName(t *testing.T) {
	r := seededResolver(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		ref      string
		fallback string
		want     string
	}{
		{"resolved", "Patient/p1", UnknownPatient, "Maria Lopes"},
		{"dangling", "Patient/ghost", UnknownPatient, UnknownPatient},
		{"malformed", "not-a-reference", UnknownDoctor, UnknownDoctor},
		{"empty name", "Practitioner/nameless", UnknownDoctor, UnknownDoctor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.DisplayName(ctx, tt.ref, tt.fallback)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindParticipant(t *testing.T) {
	appt := fhir.Appointment{Participants: []fhir.Participant{
		{Actor: "garbage"},
		{Actor: "Practitioner/d1"},
		{Actor: "Patient/p1"},
		{Actor: "Patient/p2"},
	}}

	ref, ok := FindParticipant(appt, fhir.TypePatient)
	assert.True(t, ok)
	assert.Equal(t, "Patient/p1", ref)

	ref, ok = FindParticipant(appt, fhir.TypePractitioner)
	assert.True(t, ok)
	assert.Equal(t, "Practitioner/d1", ref)

	_, ok = FindParticipant(appt, "Location")
	assert.False(t, ok)

	_, ok = FindParticipant(fhir.Appointment{}, fhir.TypePatient)
	assert.False(t, ok)
}
