package fhir

// MedicationRequest is the typed read view of a prescription.
type MedicationRequest struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Subject    string `json:"subject"`
	Requester  string `json:"requester"`
	AuthoredOn string `json:"authoredOn"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage,omitempty"`
}

// MedicationRequestFrom reads the prescription fields out of r.
func MedicationRequestFrom(r Resource) MedicationRequest {
	medication := r.String("medicationCodeableConcept", "text")
	if medication == "" {
		medication = r.String("medicationCodeableConcept", "coding", "0", "display")
	}
	return MedicationRequest{
		ID:         r.ID,
		Status:     r.String("status"),
		Subject:    r.Reference("subject"),
		Requester:  r.Reference("requester"),
		AuthoredOn: r.String("authoredOn"),
		Medication: medication,
		Dosage:     r.String("dosageInstruction", "0", "text"),
	}
}

// DiagnosticReport is the typed read view of a report.
type DiagnosticReport struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Subject    string   `json:"subject"`
	Performers []string `json:"performers,omitempty"`
	Issued     string   `json:"issued"`
	Code       string   `json:"code"`
	Conclusion string   `json:"conclusion,omitempty"`
}

// DiagnosticReportFrom reads the report fields out of r. Issued falls back to
// effectiveDateTime when a report was never formally issued.
func DiagnosticReportFrom(r Resource) DiagnosticReport {
	d := DiagnosticReport{
		ID:         r.ID,
		Status:     r.String("status"),
		Subject:    r.Reference("subject"),
		Issued:     r.StringOr(r.String("effectiveDateTime"), "issued"),
		Code:       r.StringOr(r.String("code", "coding", "0", "display"), "code", "text"),
		Conclusion: r.String("conclusion"),
	}
	for _, raw := range r.List("performer") {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if ref, _ := p["reference"].(string); ref != "" {
			d.Performers = append(d.Performers, ref)
		}
	}
	return d
}
