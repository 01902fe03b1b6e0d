package views

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/resolver"
	"stealthcompany.com/clinicportal/internal/store"
)

// AssistantContext is the bundle handed to the conversational assistant
// alongside the patient's text.
type AssistantContext struct {
	Today                string                `json:"today"`
	PatientName          string                `json:"patientName"`
	UpcomingAppointments []EnrichedAppointment `json:"upcomingAppointments"`
	ActiveMedications    int                   `json:"activeMedications"`
}

// AssistantContext collects the patient's upcoming appointments (soonest
// first, cancelled ones left out) and active prescription count as of now.
func (s *Synthesizer) AssistantContext(ctx context.Context, patientID string, now time.Time) (AssistantContext, error) {
	out := AssistantContext{
		Today:                now.Format(time.DateOnly),
		PatientName:          resolver.UnknownPatient,
		UpcomingAppointments: []EnrichedAppointment{},
	}

	var appointments []EnrichedAppointment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := s.resolver.DisplayName(gctx, fhir.NewReference(fhir.TypePatient, patientID), resolver.UnknownPatient)
		out.PatientName = name
		return err
	})
	g.Go(func() error {
		var err error
		appointments, err = s.ListAppointmentsForPatient(gctx, patientID)
		return err
	})
	g.Go(func() error {
		active, err := s.store.SearchStrict(gctx, fhir.TypeMedicationRequest, store.MedicationRequestFilter{
			Subject: fhir.NewReference(fhir.TypePatient, patientID),
			Status:  "active",
		})
		out.ActiveMedications = len(active)
		return err
	})
	if err := g.Wait(); err != nil {
		return AssistantContext{}, err
	}

	for _, a := range appointments {
		if a.Status == fhir.StatusCancelled || a.StartTime().Before(now) {
			continue
		}
		out.UpcomingAppointments = append(out.UpcomingAppointments, a)
	}
	sortByStart(out.UpcomingAppointments, ascending)
	return out, nil
}
