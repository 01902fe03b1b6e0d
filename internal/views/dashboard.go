package views

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/resolver"
	"stealthcompany.com/clinicportal/internal/store"
)

// DashboardStats are the headline numbers of a practitioner's home screen.
type DashboardStats struct {
	TodayCount     int `json:"todayCount"`
	CompletedToday int `json:"completedToday"`
	TotalPatients  int `json:"totalPatients"`
	// TotalReports is the prescription count. There is no index from
	// practitioner to diagnostic report, so reports are not counted directly.
	TotalReports int `json:"totalReports"`
}

// DashboardStats computes the practitioner's stats for today ("YYYY-MM-DD").
// An appointment is today's when its raw start has today as a prefix, the same
// test the practitioner date filter applies.
func (s *Synthesizer) DashboardStats(ctx context.Context, practitionerID, today string) (DashboardStats, error) {
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
		return DashboardStats{}, err
	}

	var stats DashboardStats
	patients := make(map[string]struct{})
	onToday := store.AppointmentFilter{StartPrefix: today}

	for _, r := range appointments {
		a := fhir.AppointmentFrom(r)
		if today != "" && onToday.Match(r) {
			stats.TodayCount++
			if a.Status == fhir.StatusCompleted {
				stats.CompletedToday++
			}
		}
		if ref, ok := resolver.FindParticipant(a, fhir.TypePatient); ok {
			patients[ref] = struct{}{}
		}
	}
	for _, r := range prescriptions {
		m := fhir.MedicationRequestFrom(r)
		if _, ok := fhir.ReferenceID(m.Subject, fhir.TypePatient); ok {
			patients[m.Subject] = struct{}{}
		}
	}

	stats.TotalPatients = len(patients)
	stats.TotalReports = len(prescriptions)
	return stats, nil
}
