package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/store"
)

func bundle(next string, resources ...map[string]any) map[string]any {
	entries := make([]any, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, map[string]any{"resource": r})
	}
	b := map[string]any{"resourceType": "Bundle", "type": "searchset", "entry": entries}
	if next != "" {
		b["link"] = []any{map[string]any{"relation": "next", "url": next}}
	}
	return b
}

func newUpstream(t *testing.T, family string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/Patient", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.URL.Query().Get("page") == "2" {
			body = bundle("", map[string]any{"resourceType": "Patient", "id": "p2", "gender": "male"})
		} else {
			assert.Equal(t, "2", r.URL.Query().Get("_count"))
			body = bundle("Patient?page=2",
				map[string]any{"resourceType": "Patient", "id": "p1", "name": []any{map[string]any{"family": family}}},
				map[string]any{"resourceType": "Practitioner", "id": "stray"},
			)
		}
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	})
	mux.HandleFunc("/Practitioner", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewEncoder(w).Encode(bundle("", map[string]any{"resourceType": "Practitioner", "id": "d1"})))
	})
	mux.HandleFunc("/Appointment", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return httptest.NewServer(mux)
}

var endpoints = []Endpoint{
	{Name: "Practitioners", ResourceType: fhir.TypePractitioner},
	{Name: "Patients", ResourceType: fhir.TypePatient},
}

func TestIngestFollowsPagesAndPreservesIDs(t *testing.T) {
	upstream := newUpstream(t, "Silva")
	defer upstream.Close()

	s := store.New(store.NewMemoryBackend(), zerolog.Nop())
	c := NewClient(upstream.URL, 5*time.Second, 2, s, nil, zerolog.Nop())

	results, err := c.IngestAllResources(context.Background(), endpoints)
	require.NoError(t, err)
	assert.Equal(t, Result{Stored: 1}, results[fhir.TypePractitioner])
	assert.Equal(t, Result{Stored: 2, Failed: 1}, results[fhir.TypePatient])

	p1, err := s.Get(context.Background(), fhir.TypePatient, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Silva", p1.String("name", "0", "family"))

	_, err = s.Get(context.Background(), fhir.TypePatient, "p2")
	assert.NoError(t, err)
}

func TestReingestUpdatesExistingResources(t *testing.T) {
	s := store.New(store.NewMemoryBackend(), zerolog.Nop())

	first := newUpstream(t, "Silva")
	_, err := NewClient(first.URL, 5*time.Second, 2, s, nil, zerolog.Nop()).IngestAllResources(context.Background(), endpoints)
	first.Close()
	require.NoError(t, err)

	second := newUpstream(t, "Souza")
	defer second.Close()
	_, err = NewClient(second.URL, 5*time.Second, 2, s, nil, zerolog.Nop()).IngestAllResources(context.Background(), endpoints)
	require.NoError(t, err)

	p1, err := s.Get(context.Background(), fhir.TypePatient, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Souza", p1.String("name", "0", "family"))
	assert.Len(t, s.Search(context.Background(), fhir.TypePatient, nil), 2)
}

func TestIngestUpstreamFailure(t *testing.T) {
	upstream := newUpstream(t, "Silva")
	defer upstream.Close()

	s := store.New(store.NewMemoryBackend(), zerolog.Nop())
	c := NewClient(upstream.URL, 5*time.Second, 2, s, nil, zerolog.Nop())

	_, err := c.IngestAllResources(context.Background(), []Endpoint{{Name: "Appointments", ResourceType: fhir.TypeAppointment}})
	assert.ErrorContains(t, err, "status 500")
}

type fakeLocker struct {
	held     bool
	unlocked bool
}

func (l *fakeLocker) Lock(context.Context) error {
	if l.held {
		return store.ErrLocked
	}
	l.held = true
	return nil
}

func (l *fakeLocker) Unlock(context.Context) error {
	l.held = false
	l.unlocked = true
	return nil
}

func TestIngestRunsUnderLock(t *testing.T) {
	upstream := newUpstream(t, "Silva")
	defer upstream.Close()
	s := store.New(store.NewMemoryBackend(), zerolog.Nop())

	locker := &fakeLocker{}
	_, err := NewClient(upstream.URL, 5*time.Second, 2, s, locker, zerolog.Nop()).IngestAllResources(context.Background(), endpoints)
	require.NoError(t, err)
	assert.True(t, locker.unlocked)
	assert.False(t, locker.held)

	busy := &fakeLocker{held: true}
	_, err = NewClient(upstream.URL, 5*time.Second, 2, s, busy, zerolog.Nop()).IngestAllResources(context.Background(), endpoints)
	assert.ErrorIs(t, err, store.ErrLocked)
	assert.False(t, busy.unlocked)
}
