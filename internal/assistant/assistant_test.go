package assistant

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

	"stealthcompany.com/clinicportal/internal/booking"
	"stealthcompany.com/clinicportal/internal/events"
	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/store"
	"stealthcompany.com/clinicportal/internal/views"
)

type scriptedService struct {
	resp Response
	got  Request
}

func (s *scriptedService) Converse(_ context.Context, req Request) (Response, error) {
	s.got = req
	return s.resp, nil
}

func newHandler(t *testing.T, resp Response) (*Handler, *scriptedService, *store.Store) {
	t.Helper()
	s := store.New(store.NewMemoryBackend(), zerolog.Nop())
	_, err := s.Create(context.Background(), fhir.Resource{
		ResourceType: fhir.TypePatient,
		ID:           "p1",
		Payload:      map[string]any{"name": []any{map[string]any{"text": "Ana Silva"}}},
	})
	require.NoError(t, err)

	svc := &scriptedService{resp: resp}
	booker := booking.NewService(s, events.NewLogPublisher(zerolog.Nop()), zerolog.Nop())
	h := NewHandler(svc, views.NewSynthesizer(s, zerolog.Nop()), booker, zerolog.Nop())
	return h, svc, s
}

func TestHandleBooksFutureAppointment(t *testing.T) {
	h, svc, s := newHandler(t, Response{
		Speech: "Booked.",
		Action: &Action{Type: ActionBookAppointment, PractitionerID: "d1", Date: "2999-01-05T10:00:00Z", Reason: "Checkup"},
	})

	out, err := h.Handle(context.Background(), "p1", "book me with Dr. House")
	require.NoError(t, err)
	assert.Equal(t, "Booked.", out.Speech)
	assert.Empty(t, out.Rejected)
	require.NotNil(t, out.Appointment)

	assert.Equal(t, "book me with Dr. House", svc.got.Text)
	assert.Equal(t, "Ana Silva", svc.got.Context.PatientName)

	stored := s.Search(context.Background(), fhir.TypeAppointment, nil)
	require.Len(t, stored, 1)
	assert.Equal(t, "Checkup", stored[0].String("description"))
}

func TestHandleRejectsPastBooking(t *testing.T) {
	h, _, s := newHandler(t, Response{
		Speech: "Booked.",
		Action: &Action{Type: ActionBookAppointment, PractitionerID: "d1", Date: "2000-01-05T10:00:00Z"},
	})

	out, err := h.Handle(context.Background(), "p1", "book me yesterday")
	require.NoError(t, err)
	assert.Nil(t, out.Appointment)
	assert.Equal(t, "appointment date is in the past", out.Rejected)
	assert.Empty(t, s.Search(context.Background(), fhir.TypeAppointment, nil))
}

func TestHandleRejectsUnreadableDate(t *testing.T) {
	h, _, s := newHandler(t, Response{
		Action: &Action{Type: ActionBookAppointment, PractitionerID: "d1", Date: "next tuesday"},
	})

	out, err := h.Handle(context.Background(), "p1", "book me")
	require.NoError(t, err)
	assert.Contains(t, out.Rejected, "unreadable")
	assert.Empty(t, s.Search(context.Background(), fhir.TypeAppointment, nil))
}

func TestHandlePassesOtherActionsThrough(t *testing.T) {
	for _, action := range []*Action{
		{Type: ActionNavigate, Path: "/prescriptions"},
		{Type: ActionCreateCondition, Condition: "migraine"},
		nil,
	} {
		h, _, s := newHandler(t, Response{Speech: "Sure.", Action: action})

		out, err := h.Handle(context.Background(), "p1", "hello")
		require.NoError(t, err)
		assert.Equal(t, action, out.Action)
		assert.Nil(t, out.Appointment)
		assert.Empty(t, s.Search(context.Background(), fhir.TypeAppointment, nil))
	}
}

func TestHTTPServiceConverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hi", req.Text)
		assert.Equal(t, "2024-05-10", req.Context.Today)

		_, _ = w.Write([]byte(`{"speech":"Hello!","action":{"type":"NAVIGATE","path":"/home"}}`))
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, 5*time.Second, zerolog.Nop())
	resp, err := svc.Converse(context.Background(), Request{Text: "hi", Context: views.AssistantContext{Today: "2024-05-10"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Speech)
	require.NotNil(t, resp.Action)
	assert.Equal(t, ActionNavigate, resp.Action.Type)
	assert.Equal(t, "/home", resp.Action.Path)
}

func TestHTTPServiceUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPService(server.URL, 5*time.Second, zerolog.Nop()).Converse(context.Background(), Request{})
	assert.ErrorContains(t, err, "status 502")
}
