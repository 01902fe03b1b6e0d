package views

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/resolver"
	"stealthcompany.com/clinicportal/internal/store"
)

// RosterEntry aggregates one patient's visits with a practitioner. Both
// appointments and prescriptions count as visits.
type RosterEntry struct {
	Patient        fhir.Patient `json:"patient"`
	TotalVisits    int          `json:"total_visits"`
	FirstVisitDate string       `json:"first_visit_date"`
	LastVisitDate  string       `json:"last_visit_date"`
}

type visit struct {
	patientID string
	date      string
}

// SynthesizePatientRoster lists the distinct patients a practitioner has seen
// or prescribed for, in order of first encounter.
func (s *Synthesizer) SynthesizePatientRoster(ctx context.Context, practitionerID string) ([]RosterEntry, error) {
	var appointments, prescriptions []fhir.Resource

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appointments, err = s.practitionerAppointments(gctx, practitionerID, "")
		return err
	})
	g.Go(func() error {
		var err error
		prescriptions, err = s.store.SearchStrict(gctx, fhir.TypeMedicationRequest, store.MedicationRequestFilter{
			Requester: fhir.NewReference(fhir.TypePractitioner, practitionerID),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	visits := make([]visit, 0, len(appointments)+len(prescriptions))
	for _, a := range sortedAppointments(appointments, ascending) {
		ref, ok := resolver.FindParticipant(a, fhir.TypePatient)
		if !ok {
			continue
		}
		id, _ := fhir.ReferenceID(ref, fhir.TypePatient)
		visits = append(visits, visit{patientID: id, date: fhir.DatePart(a.Start)})
	}
	for _, r := range prescriptions {
		m := fhir.MedicationRequestFrom(r)
		id, ok := fhir.ReferenceID(m.Subject, fhir.TypePatient)
		if !ok {
			continue
		}
		visits = append(visits, visit{patientID: id, date: fhir.DatePart(m.AuthoredOn)})
	}

	index := make(map[string]int)
	var roster []RosterEntry
	for _, v := range visits {
		i, seen := index[v.patientID]
		if !seen {
			patient, err := s.patientOrFallback(ctx, v.patientID)
			if err != nil {
				return nil, err
			}
			index[v.patientID] = len(roster)
			roster = append(roster, RosterEntry{Patient: patient})
			i = len(roster) - 1
		}

		entry := &roster[i]
		entry.TotalVisits++
		if v.date == "" {
			continue
		}
		if entry.FirstVisitDate == "" || v.date < entry.FirstVisitDate {
			entry.FirstVisitDate = v.date
		}
		if v.date > entry.LastVisitDate {
			entry.LastVisitDate = v.date
		}
	}

	if roster == nil {
		roster = []RosterEntry{}
	}
	return roster, nil
}

// patientOrFallback resolves a patient, substituting UnknownPatient for a
// dangling reference or an empty name.
func (s *Synthesizer) patientOrFallback(ctx context.Context, patientID string) (fhir.Patient, error) {
	res, ok, err := s.resolver.Resolve(ctx, fhir.NewReference(fhir.TypePatient, patientID))
	if err != nil {
		return fhir.Patient{}, err
	}
	if !ok {
		return fhir.Patient{ID: patientID, DisplayName: resolver.UnknownPatient}, nil
	}
	p := fhir.PatientFrom(res)
	if p.DisplayName == "" {
		p.DisplayName = resolver.UnknownPatient
	}
	return p, nil
}

// sortedAppointments reads appointments out of resources in start order.
func sortedAppointments(resources []fhir.Resource, dir direction) []fhir.Appointment {
	list := make([]EnrichedAppointment, len(resources))
	for i, r := range resources {
		list[i].Appointment = fhir.AppointmentFrom(r)
	}
	sortByStart(list, dir)

	out := make([]fhir.Appointment, len(list))
	for i := range list {
		out[i] = list[i].Appointment
	}
	return out
}
