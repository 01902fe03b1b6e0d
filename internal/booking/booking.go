// Package booking is the write path for appointments.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/events"
	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/metrics"
)

// DefaultDuration is used when a booking request has no end time.
const DefaultDuration = 30 * time.Minute

// ValidationError rejects caller input. Reason is meant for humans.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Writer is the store surface booking needs.
type Writer interface {
	Create(ctx context.Context, r fhir.Resource) (fhir.Resource, error)
	Get(ctx context.Context, resourceType, id string) (fhir.Resource, error)
	Update(ctx context.Context, resourceType, id string, payload map[string]any) (fhir.Resource, error)
}

// Request asks for a new appointment.
type Request struct {
	PatientID      string    `json:"patientId"`
	PractitionerID string    `json:"practitionerId"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end,omitempty"`
	Description    string    `json:"description,omitempty"`
}

// Service books appointments and moves them through their statuses.
type Service struct {
	store     Writer
	publisher events.Publisher
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a booking Service.
func NewService(store Writer, publisher events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		log:       logger.With().Str("component", "booking").Logger(),
	}
}

// Book creates a booked appointment. A start before now is rejected, never
// moved; nothing is written in that case.
func (s *Service) Book(ctx context.Context, req Request) (fhir.Resource, error) {
	if err := s.validate(req); err != nil {
		metrics.RecordBooking("rejected")
		s.log.Info().Err(err).Str("patient_id", req.PatientID).Msg("Booking rejected")
		return fhir.Resource{}, err
	}

	end := req.End
	if end.IsZero() {
		end = req.Start.Add(DefaultDuration)
	}

	payload := map[string]any{
		"status":          fhir.StatusBooked,
		"start":           req.Start.Format(time.RFC3339),
		"end":             end.Format(time.RFC3339),
		"minutesDuration": int(end.Sub(req.Start).Minutes()),
		"created":         s.now().UTC().Format(time.RFC3339),
		"participant": []any{
			participant(fhir.NewReference(fhir.TypePatient, req.PatientID), fhir.ParticipantAccepted),
			participant(fhir.NewReference(fhir.TypePractitioner, req.PractitionerID), fhir.ParticipantNeedsAction),
		},
	}
	if req.Description != "" {
		payload["description"] = req.Description
	}

	created, err := s.store.Create(ctx, fhir.Resource{ResourceType: fhir.TypeAppointment, Payload: payload})
	if err != nil {
		metrics.RecordBooking("failed")
		return fhir.Resource{}, fmt.Errorf("book appointment: %w", err)
	}
	metrics.RecordBooking("booked")

	s.publish(ctx, events.Event{
		Type:      events.AppointmentBooked,
		Reference: created.Ref(),
		Data: map[string]any{
			"patientId":      req.PatientID,
			"practitionerId": req.PractitionerID,
			"start":          payload["start"],
		},
	})

	s.log.Info().Str("ref", created.Ref()).Str("patient_id", req.PatientID).Msg("Appointment booked")
	return created, nil
}

// UpdateStatus sets the status of an existing appointment. The rest of the
// payload is written back unchanged.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID, status string) (fhir.Resource, error) {
	if !fhir.AppointmentStatuses[status] {
		return fhir.Resource{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown appointment status %q", status)}
	}

	current, err := s.store.Get(ctx, fhir.TypeAppointment, appointmentID)
	if err != nil {
		return fhir.Resource{}, err
	}

	previous := current.String("status")
	payload := make(map[string]any, len(current.Payload)+1)
	for k, v := range current.Payload {
		payload[k] = v
	}
	payload["status"] = status

	updated, err := s.store.Update(ctx, fhir.TypeAppointment, appointmentID, payload)
	if err != nil {
		return fhir.Resource{}, err
	}

	s.publish(ctx, events.Event{
		Type:      events.AppointmentStatusChanged,
		Reference: updated.Ref(),
		Data:      map[string]any{"from": previous, "to": status},
	})
	return updated, nil
}

func (s *Service) validate(req Request) error {
	switch {
	case req.PatientID == "":
		return &ValidationError{Field: "patientId", Reason: "is required"}
	case req.PractitionerID == "":
		return &ValidationError{Field: "practitionerId", Reason: "is required"}
	case req.Start.IsZero():
		return &ValidationError{Field: "start", Reason: "is required"}
	case req.Start.Before(s.now()):
		return &ValidationError{Field: "start", Reason: "appointment date is in the past"}
	case !req.End.IsZero() && !req.End.After(req.Start):
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	return nil
}

// publish delivers e; a failed notification does not undo the write.
func (s *Service) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("event_type", e.Type).Str("ref", e.Reference).Msg("Failed to publish event")
	}
}

func participant(ref, status string) map[string]any {
	return map[string]any{
		"actor":    map[string]any{"reference": ref},
		"status":   status,
		"required": "required",
	}
}
