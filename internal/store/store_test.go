package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthcompany.com/clinicportal/internal/fhir"
)

var errBackendDown = errors.New("backend down")

// failingBackend rejects every call.
type failingBackend struct{}

func (failingBackend) Insert(context.Context, string, string, []byte) error { return errBackendDown }
func (failingBackend) Get(context.Context, string, string) ([]byte, error)  { return nil, errBackendDown }
func (failingBackend) Scan(context.Context, string) ([][]byte, error)       { return nil, errBackendDown }
func (failingBackend) Replace(context.Context, string, string, []byte) error {
	return errBackendDown
}

func newTestStore() *Store {
	return New(NewMemoryBackend(), zerolog.Nop())
}

func patient(id, family string) fhir.Resource {
	return fhir.Resource{
		ResourceType: fhir.TypePatient,
		ID:           id,
		Payload: map[string]any{
			"name":   []any{map[string]any{"family": family, "given": []any{"Ana"}}},
			"gender": "female",
		},
	}
}

func TestCreateThenGetReturnsEqualDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	created, err := s.Create(ctx, patient("p1", "Silva"))
	require.NoError(t, err)

	got, err := s.Get(ctx, fhir.TypePatient, "p1")
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateReturnsDocumentAsStored(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	created, err := s.Create(ctx, fhir.Resource{
		ResourceType: fhir.TypeAppointment,
		ID:           "a1",
		Payload: map[string]any{
			"minutesDuration": 30,
			"tags":            []string{"a"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"minutesDuration": 30.0, "tags": []any{"a"}}, created.Payload)

	got, err := s.Get(ctx, fhir.TypeAppointment, "a1")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := s.Update(ctx, fhir.TypeAppointment, "a1", map[string]any{"minutesDuration": 45})
	require.NoError(t, err)
	got, err = s.Get(ctx, fhir.TypeAppointment, "a1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestCreateAssignsIDWhenMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	created, err := s.Create(ctx, patient("", "Silva"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, fhir.TypePatient, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	other, err := s.Create(ctx, patient("", "Souza"))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestCreateWithoutTypeIsRejected(t *testing.T) {
	_, err := newTestStore().Create(context.Background(), fhir.Resource{ID: "x"})
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestCreateDuplicateKeyIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Create(ctx, patient("p1", "Silva"))
	require.NoError(t, err)

	_, err = s.Create(ctx, patient("p1", "Souza"))
	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateBackendFailurePropagates(t *testing.T) {
	s := New(failingBackend{}, zerolog.Nop())

	_, err := s.Create(context.Background(), patient("p1", "Silva"))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create", pe.Op)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestGetMissingIsNotFound(t *testing.T) {
	_, err := newTestStore().Get(context.Background(), fhir.TypePatient, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsPersistence(err))
}

func TestGetBackendFailurePropagates(t *testing.T) {
	s := New(failingBackend{}, zerolog.Nop())

	_, err := s.Get(context.Background(), fhir.TypePatient, "p1")
	assert.True(t, IsPersistence(err))
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUpdateReplacesPayloadAndKeepsKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Create(ctx, patient("p1", "Silva"))
	require.NoError(t, err)

	payload := map[string]any{
		"resourceType": "Practitioner",
		"id":           "hijack",
		"gender":       "male",
	}
	updated, err := s.Update(ctx, fhir.TypePatient, "p1", payload)
	require.NoError(t, err)

	got, err := s.Get(ctx, fhir.TypePatient, "p1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.Equal(t, fhir.TypePatient, got.ResourceType)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, map[string]any{"gender": "male"}, got.Payload)

	_, err = s.Get(ctx, "Practitioner", "hijack")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMissingDoesNotUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Update(ctx, fhir.TypePatient, "ghost", map[string]any{"gender": "male"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, fhir.TypePatient, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBackendFailurePropagates(t *testing.T) {
	s := New(failingBackend{}, zerolog.Nop())

	_, err := s.Update(context.Background(), fhir.TypePatient, "p1", map[string]any{})
	assert.True(t, IsPersistence(err))
}

func TestSearchReturnsMatchingSubsetInStoreOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	for _, p := range []fhir.Resource{patient("a", "Silva"), patient("b", "Souza"), patient("c", "Silva")} {
		_, err := s.Create(ctx, p)
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, fhir.Resource{ResourceType: fhir.TypePractitioner, ID: "a"})
	require.NoError(t, err)

	silvas := s.Search(ctx, fhir.TypePatient, FilterFunc(func(r fhir.Resource) bool {
		return r.String("name", "0", "family") == "Silva"
	}))
	require.Len(t, silvas, 2)
	assert.Equal(t, "a", silvas[0].ID)
	assert.Equal(t, "c", silvas[1].ID)

	assert.Len(t, s.Search(ctx, fhir.TypePatient, All()), 3)
	assert.Len(t, s.Search(ctx, fhir.TypePatient, nil), 3)
}

func TestSearchOnEmptyBackendIsEmptyList(t *testing.T) {
	got := newTestStore().Search(context.Background(), fhir.TypeAppointment, All())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchSwallowsBackendFailure(t *testing.T) {
	s := New(failingBackend{}, zerolog.Nop())

	got := s.Search(context.Background(), fhir.TypePatient, All())
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err := s.SearchStrict(context.Background(), fhir.TypePatient, All())
	assert.True(t, IsPersistence(err))
}
