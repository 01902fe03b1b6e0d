package views

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/resolver"
	"stealthcompany.com/clinicportal/internal/store"
)

// AttendanceContext is everything a practitioner sees while attending one
// appointment.
type AttendanceContext struct {
	Appointment      EnrichedAppointment      `json:"appointment"`
	Patient          fhir.Patient             `json:"patient"`
	Reports          []fhir.DiagnosticReport  `json:"reports"`
	Prescriptions    []fhir.MedicationRequest `json:"prescriptions"`
	PastAppointments []fhir.Appointment       `json:"pastAppointments"`
}

// AttendanceContext assembles the bundle for appointmentID. The past
// appointments are the practitioner's completed ones with the same patient,
// never including appointmentID itself.
func (s *Synthesizer) AttendanceContext(ctx context.Context, appointmentID, practitionerID string) (AttendanceContext, error) {
	root, err := s.store.Get(ctx, fhir.TypeAppointment, appointmentID)
	if err != nil {
		return AttendanceContext{}, err
	}

	out := AttendanceContext{
		Patient:          fhir.Patient{DisplayName: resolver.UnknownPatient},
		Reports:          []fhir.DiagnosticReport{},
		Prescriptions:    []fhir.MedicationRequest{},
		PastAppointments: []fhir.Appointment{},
	}
	out.Appointment, err = s.EnrichAppointment(ctx, root)
	if err != nil {
		return AttendanceContext{}, err
	}

	patientRef, ok := resolver.FindParticipant(out.Appointment.Appointment, fhir.TypePatient)
	if !ok {
		s.log.Warn().Str("appointment_id", appointmentID).Msg("Appointment has no patient participant")
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, _ := fhir.ReferenceID(patientRef, fhir.TypePatient)
		p, err := s.patientOrFallback(gctx, id)
		out.Patient = p
		return err
	})
	g.Go(func() error {
		found, err := s.store.SearchStrict(gctx, fhir.TypeDiagnosticReport, store.DiagnosticReportFilter{Subject: patientRef})
		if err != nil {
			return err
		}
		for _, r := range found {
			out.Reports = append(out.Reports, fhir.DiagnosticReportFrom(r))
		}
		sort.SliceStable(out.Reports, func(i, j int) bool {
			return fhir.ParseTimestamp(out.Reports[i].Issued).After(fhir.ParseTimestamp(out.Reports[j].Issued))
		})
		return nil
	})
	g.Go(func() error {
		found, err := s.store.SearchStrict(gctx, fhir.TypeMedicationRequest, store.MedicationRequestFilter{Subject: patientRef})
		if err != nil {
			return err
		}
		for _, r := range found {
			out.Prescriptions = append(out.Prescriptions, fhir.MedicationRequestFrom(r))
		}
		sort.SliceStable(out.Prescriptions, func(i, j int) bool {
			return fhir.ParseTimestamp(out.Prescriptions[i].AuthoredOn).After(fhir.ParseTimestamp(out.Prescriptions[j].AuthoredOn))
		})
		return nil
	})
	g.Go(func() error {
		found, err := s.store.SearchStrict(gctx, fhir.TypeAppointment, store.And(
			store.AppointmentFilter{
				Participant: fhir.NewReference(fhir.TypePractitioner, practitionerID),
				Status:      fhir.StatusCompleted,
				ExcludeID:   appointmentID,
			},
			store.AppointmentFilter{Participant: patientRef},
		))
		if err != nil {
			return err
		}
		out.PastAppointments = append(out.PastAppointments, sortedAppointments(found, descending)...)
		return nil
	})

	if err := g.Wait(); err != nil {
		return AttendanceContext{}, err
	}
	return out, nil
}
