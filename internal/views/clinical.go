package views

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/resolver"
	"stealthcompany.com/clinicportal/internal/store"
)

// EnrichedPrescription is a medication request with both parties named.
type EnrichedPrescription struct {
	fhir.MedicationRequest
	PatientName      string `json:"patientName"`
	PractitionerName string `json:"practitionerName"`
}

// EnrichedReport is a diagnostic report with its performers named.
type EnrichedReport struct {
	fhir.DiagnosticReport
	PerformerNames []string `json:"performerNames"`
}

// ListPrescriptionsForPatient returns the patient's prescriptions, newest first.
func (s *Synthesizer) ListPrescriptionsForPatient(ctx context.Context, patientID string) ([]EnrichedPrescription, error) {
	return s.listPrescriptions(ctx, store.MedicationRequestFilter{
		Subject: fhir.NewReference(fhir.TypePatient, patientID),
	})
}

// ListPrescriptionsForPractitioner returns what the practitioner prescribed, newest first.
func (s *Synthesizer) ListPrescriptionsForPractitioner(ctx context.Context, practitionerID string) ([]EnrichedPrescription, error) {
	return s.listPrescriptions(ctx, store.MedicationRequestFilter{
		Requester: fhir.NewReference(fhir.TypePractitioner, practitionerID),
	})
}

func (s *Synthesizer) listPrescriptions(ctx context.Context, f store.MedicationRequestFilter) ([]EnrichedPrescription, error) {
	found, err := s.store.SearchStrict(ctx, fhir.TypeMedicationRequest, f)
	if err != nil {
		return nil, err
	}

	out := make([]EnrichedPrescription, len(found))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, r := range found {
		g.Go(func() error {
			m := fhir.MedicationRequestFrom(r)
			patient, err := s.resolver.DisplayName(gctx, m.Subject, resolver.UnknownPatient)
			if err != nil {
				return err
			}
			doctor, err := s.resolver.DisplayName(gctx, m.Requester, resolver.UnknownDoctor)
			if err != nil {
				return err
			}
			out[i] = EnrichedPrescription{MedicationRequest: m, PatientName: patient, PractitionerName: doctor}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return fhir.ParseTimestamp(out[i].AuthoredOn).After(fhir.ParseTimestamp(out[j].AuthoredOn))
	})
	return out, nil
}

// ListReportsForPatient returns the patient's diagnostic reports, newest first.
func (s *Synthesizer) ListReportsForPatient(ctx context.Context, patientID string) ([]EnrichedReport, error) {
	found, err := s.store.SearchStrict(ctx, fhir.TypeDiagnosticReport, store.DiagnosticReportFilter{
		Subject: fhir.NewReference(fhir.TypePatient, patientID),
	})
	if err != nil {
		return nil, err
	}

	out := make([]EnrichedReport, len(found))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, r := range found {
		g.Go(func() error {
			d := fhir.DiagnosticReportFrom(r)
			names := make([]string, 0, len(d.Performers))
			for _, ref := range d.Performers {
				name, err := s.resolver.DisplayName(gctx, ref, resolver.UnknownDoctor)
				if err != nil {
					return err
				}
				names = append(names, name)
			}
			out[i] = EnrichedReport{DiagnosticReport: d, PerformerNames: names}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return fhir.ParseTimestamp(out[i].Issued).After(fhir.ParseTimestamp(out[j].Issued))
	})
	return out, nil
}
