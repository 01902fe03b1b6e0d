package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthcompany.com/clinicportal/internal/events"
	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/store"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

// countingWriter counts writes reaching the store.
type countingWriter struct {
	*store.Store
	writes int
}

func (w *countingWriter) Create(ctx context.Context, r fhir.Resource) (fhir.Resource, error) {
	w.writes++
	return w.Store.Create(ctx, r)
}

func (w *countingWriter) Update(ctx context.Context, resourceType, id string, payload map[string]any) (fhir.Resource, error) {
	w.writes++
	return w.Store.Update(ctx, resourceType, id, payload)
}

func newService() (*Service, *countingWriter, *recordingPublisher) {
	w := &countingWriter{Store: store.New(store.NewMemoryBackend(), zerolog.Nop())}
	p := &recordingPublisher{}
	s := NewService(w, p, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s, w, p
}

func TestBookCreatesBookedAppointment(t *testing.T) {
	s, w, p := newService()
	ctx := context.Background()

	created, err := s.Book(ctx, Request{
		PatientID:      "p1",
		PractitionerID: "d1",
		Start:          fixedNow.Add(24 * time.Hour),
		Description:    "Follow-up",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 1, w.writes)

	stored, err := w.Get(ctx, fhir.TypeAppointment, created.ID)
	require.NoError(t, err)
	appt := fhir.AppointmentFrom(stored)
	assert.Equal(t, fhir.StatusBooked, appt.Status)
	assert.Equal(t, "2024-05-11T12:00:00Z", appt.Start)
	assert.Equal(t, "2024-05-11T12:30:00Z", appt.End)
	assert.Equal(t, "Follow-up", appt.Description)
	assert.Equal(t, []fhir.Participant{
		{Actor: "Patient/p1", Status: fhir.ParticipantAccepted},
		{Actor: "Practitioner/d1", Status: fhir.ParticipantNeedsAction},
	}, appt.Participants)

	require.Len(t, p.events, 1)
	assert.Equal(t, events.AppointmentBooked, p.events[0].Type)
	assert.Equal(t, created.Ref(), p.events[0].Reference)
}

func TestBookRejectsPastDateWithoutWriting(t *testing.T) {
	s, w, p := newService()

	_, err := s.Book(context.Background(), Request{
		PatientID:      "p1",
		PractitionerID: "d1",
		Start:          fixedNow.Add(-time.Minute),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "start", verr.Field)
	assert.Zero(t, w.writes)
	assert.Empty(t, p.events)
	assert.Empty(t, w.Search(context.Background(), fhir.TypeAppointment, nil))
}

func TestBookValidation(t *testing.T) {
	future := fixedNow.Add(time.Hour)
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing patient", Request{PractitionerID: "d1", Start: future}, "patientId"},
		{"missing practitioner", Request{PatientID: "p1", Start: future}, "practitionerId"},
		{"missing start", Request{PatientID: "p1", PractitionerID: "d1"}, "start"},
		{"end before start", Request{PatientID: "p1", PractitionerID: "d1", Start: future, End: future.Add(-time.Minute)}, "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, w, _ := newService()
			_, err := s.Book(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, w.writes)
		})
	}
}

func TestBookStartingNowIsAccepted(t *testing.T) {
	s, _, _ := newService()
	_, err := s.Book(context.Background(), Request{PatientID: "p1", PractitionerID: "d1", Start: fixedNow})
	assert.NoError(t, err)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	s, w, p := newService()
	p.err = errors.New("broker down")

	_, err := s.Book(context.Background(), Request{PatientID: "p1", PractitionerID: "d1", Start: fixedNow.Add(time.Hour)})
	assert.NoError(t, err)
	assert.Equal(t, 1, w.writes)
}

func TestUpdateStatus(t *testing.T) {
	s, w, p := newService()
	ctx := context.Background()

	created, err := s.Book(ctx, Request{PatientID: "p1", PractitionerID: "d1", Start: fixedNow.Add(time.Hour)})
	require.NoError(t, err)

	updated, err := s.UpdateStatus(ctx, created.ID, fhir.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, fhir.StatusCompleted, updated.String("status"))
	assert.Equal(t, created.String("start"), updated.String("start"))

	require.Len(t, p.events, 2)
	assert.Equal(t, events.AppointmentStatusChanged, p.events[1].Type)
	assert.Equal(t, map[string]any{"from": fhir.StatusBooked, "to": fhir.StatusCompleted}, p.events[1].Data)

	writes := w.writes
	_, err = s.UpdateStatus(ctx, created.ID, "teleported")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, writes, w.writes)

	_, err = s.UpdateStatus(ctx, "missing", fhir.StatusCancelled)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
