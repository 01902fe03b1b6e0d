package views

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/resolver"
	"stealthcompany.com/clinicportal/internal/store"
)

// EnrichedAppointment is an appointment with its participants' names resolved.
type EnrichedAppointment struct {
	fhir.Appointment
	PatientID        string `json:"patientId,omitempty"`
	PatientName      string `json:"patientName"`
	PatientBloodType string `json:"patientBloodType"`
	PractitionerID   string `json:"practitionerId,omitempty"`
	PractitionerName string `json:"practitionerName"`
}

// EnrichAppointment resolves the patient and practitioner of r. Unresolved
// participants fall back to placeholder names; only backend failures error.
func (s *Synthesizer) EnrichAppointment(ctx context.Context, r fhir.Resource) (EnrichedAppointment, error) {
	a := fhir.AppointmentFrom(r)
	out := EnrichedAppointment{
		Appointment:      a,
		PatientName:      resolver.UnknownPatient,
		PatientBloodType: resolver.NotAvailable,
		PractitionerName: resolver.UnknownDoctor,
	}

	g, gctx := errgroup.WithContext(ctx)

	if ref, ok := resolver.FindParticipant(a, fhir.TypePatient); ok {
		out.PatientID, _ = fhir.ReferenceID(ref, fhir.TypePatient)
		g.Go(func() error {
			res, found, err := s.resolver.Resolve(gctx, ref)
			if err != nil || !found {
				return err
			}
			p := fhir.PatientFrom(res)
			if p.DisplayName != "" {
				out.PatientName = p.DisplayName
			}
			if p.BloodType != "" {
				out.PatientBloodType = p.BloodType
			}
			return nil
		})
	}

	if ref, ok := resolver.FindParticipant(a, fhir.TypePractitioner); ok {
		out.PractitionerID, _ = fhir.ReferenceID(ref, fhir.TypePractitioner)
		g.Go(func() error {
			name, err := s.resolver.DisplayName(gctx, ref, resolver.UnknownDoctor)
			out.PractitionerName = name
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return EnrichedAppointment{}, err
	}
	return out, nil
}

// GetAppointment fetches and enriches one appointment. A missing id yields
// store.ErrNotFound.
func (s *Synthesizer) GetAppointment(ctx context.Context, id string) (EnrichedAppointment, error) {
	r, err := s.store.Get(ctx, fhir.TypeAppointment, id)
	if err != nil {
		return EnrichedAppointment{}, err
	}
	return s.EnrichAppointment(ctx, r)
}

// ListAppointmentsForPatient returns the patient's appointments, most recent first.
func (s *Synthesizer) ListAppointmentsForPatient(ctx context.Context, patientID string) ([]EnrichedAppointment, error) {
	found, err := s.store.SearchStrict(ctx, fhir.TypeAppointment, store.AppointmentFilter{
		Participant: fhir.NewReference(fhir.TypePatient, patientID),
	})
	if err != nil {
		return nil, err
	}

	out, err := s.enrichAll(ctx, found)
	if err != nil {
		return nil, err
	}
	sortByStart(out, descending)
	return out, nil
}

// ListAppointmentsForPractitioner returns the practitioner's appointments,
// soonest first. A non-empty date keeps only starts having it as a prefix.
func (s *Synthesizer) ListAppointmentsForPractitioner(ctx context.Context, practitionerID, date string) ([]EnrichedAppointment, error) {
	found, err := s.practitionerAppointments(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}

	out, err := s.enrichAll(ctx, found)
	if err != nil {
		return nil, err
	}
	sortByStart(out, ascending)
	return out, nil
}

func (s *Synthesizer) practitionerAppointments(ctx context.Context, practitionerID, date string) ([]fhir.Resource, error) {
	return s.store.SearchStrict(ctx, fhir.TypeAppointment, store.AppointmentFilter{
		Participant: fhir.NewReference(fhir.TypePractitioner, practitionerID),
		StartPrefix: date,
	})
}

// enrichAll enriches resources concurrently, keeping their order.
func (s *Synthesizer) enrichAll(ctx context.Context, resources []fhir.Resource) ([]EnrichedAppointment, error) {
	out := make([]EnrichedAppointment, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, r := range resources {
		g.Go(func() error {
			e, err := s.EnrichAppointment(gctx, r)
			if err != nil {
				return err
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type direction bool

const (
	ascending  direction = true
	descending direction = false
)

// sortByStart orders by parsed start time. Equal times keep store order.
// Unparsable starts compare as the zero time.
func sortByStart(list []EnrichedAppointment, dir direction) {
	sort.SliceStable(list, func(i, j int) bool {
		ti, tj := list[i].StartTime(), list[j].StartTime()
		if dir == ascending {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
}
